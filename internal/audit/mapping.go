package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns action and resource for a request path such as /api/v1/otp/send
// (action "send", resource "otp"). The version segment is ignored. /dev/otp maps to
// action "read", resource "dev_otp".
func ParseRoute(method, path string) ActionResource {
	segs := splitPath(path)
	if len(segs) == 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	if segs[0] == "api" {
		segs = segs[1:]
		if len(segs) > 0 && isVersion(segs[0]) {
			segs = segs[1:]
		}
	} else if segs[0] == "dev" && len(segs) > 1 {
		return ActionResource{Action: methodToAction(method), Resource: "dev_" + segs[1]}
	}
	switch len(segs) {
	case 0:
		return ActionResource{Action: "unknown", Resource: "unknown"}
	case 1:
		return ActionResource{Action: methodToAction(method), Resource: segs[0]}
	default:
		return ActionResource{Action: segs[len(segs)-1], Resource: segs[0]}
	}
}

func splitPath(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func methodToAction(method string) string {
	switch strings.ToUpper(method) {
	case "GET", "HEAD":
		return "read"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
