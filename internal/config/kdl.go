package config

import (
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/hl/internal/errz"
)

// LoadKDLFile reads and applies a KDL settings file on top of base. A
// missing file is not an error: it means "use defaults".
func LoadKDLFile(path string, base Settings) (Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, errz.NewIOError("read", path, err)
	}
	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return base, errz.NewConfigError("file", path, err)
	}
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "time-format":
			if s, ok := firstStringArg(n); ok {
				base.TimeFormat = s
			}
		case "time-zone":
			if s, ok := firstStringArg(n); ok {
				base.TimeZone = s
			}
		case "theme":
			if s, ok := firstStringArg(n); ok {
				base.ThemeName = s
			}
		case "concurrency":
			if v, ok := firstIntArg(n); ok {
				base.Concurrency = v
			}
		case "buffer-size":
			if v, ok := firstIntArg(n); ok {
				base.BufferSize = v
				base.MaxMessageSize = v
			}
		case "fields":
			applyFieldsNode(n, &base.Parser)
		}
	}
	return base, nil
}

func applyFieldsNode(n *document.Node, ps *ParserSettings) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "time":
			ps.TimeFieldNames = collectStringArgs(cn)
		case "message":
			ps.MessageFieldNames = collectStringArgs(cn)
		case "logger":
			ps.LoggerFieldNames = collectStringArgs(cn)
		case "caller":
			ps.CallerFieldNames = collectStringArgs(cn)
		case "ignore":
			names := collectStringArgs(cn)
			if ps.IgnoredKeys == nil {
				ps.IgnoredKeys = make(map[string]struct{}, len(names))
			}
			for _, name := range names {
				ps.IgnoredKeys[name] = struct{}{}
			}
		}
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		for _, cn := range n.Children {
			out = append(out, nodeName(cn))
		}
	}
	return out
}
