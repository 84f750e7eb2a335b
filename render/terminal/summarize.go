package terminal

// extractToolSummary picks the most telling argument of a tool call.
func extractToolSummary(name string, args map[string]any) string {
	if args == nil {
		return ""
	}

	switch name {
	case "exec", "bash", "process":
		return stringField(args, "command")
	case "read", "write", "edit":
		if p := stringField(args, "path"); p != "" {
			return p
		}
		return stringField(args, "file_path")
	case "sessions_spawn", "delegate":
		target := stringField(args, "agentId")
		task := stringField(args, "task")
		switch {
		case target != "" && task != "":
			return target + ": " + task
		case target != "":
			return target
		default:
			return task
		}
	case "web_search":
		return stringField(args, "query")
	case "web_fetch", "browser":
		return stringField(args, "url")
	default:
		for _, key := range []string{"command", "path", "file_path", "pattern", "query", "url"} {
			if v := stringField(args, key); v != "" {
				return v
			}
		}
		return ""
	}
}

// stringField safely extracts a string value from a map.
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
