package config

import (
	"fmt"
	"log"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// parseKDL reads the KDL form of the tree configuration:
//
//	default_tree "mozilla-central"
//	tree "mozilla-central" {
//	    index_path "/srv/index/mozilla-central"
//	    files_path "/srv/src/mozilla-central"
//	}
func parseKDL(content string) (*Config, error) {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	cfg := &Config{Trees: map[string]*TreeConfig{}}
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "mozsearch_path":
			assignSimpleString(n, "mozsearch_path", func(v string) { cfg.MozsearchPath = v })
		case "config_repo":
			assignSimpleString(n, "config_repo", func(v string) { cfg.ConfigRepo = v })
		case "default_tree":
			assignSimpleString(n, "default_tree", func(v string) { cfg.DefaultTree = v })
		case "tree":
			name, ok := firstStringArg(n)
			if !ok || name == "" {
				return nil, fmt.Errorf("tree node needs a name argument")
			}
			if _, dup := cfg.Trees[name]; dup {
				return nil, fmt.Errorf("tree %q defined twice", name)
			}
			tree := &TreeConfig{}
			for _, cn := range n.Children {
				assignSimpleString(cn, "index_path", func(v string) { tree.IndexPath = v })
				assignSimpleString(cn, "files_path", func(v string) { tree.FilesPath = v })
				assignSimpleString(cn, "git_path", func(v string) { tree.GitPath = v })
				assignSimpleString(cn, "objdir_path", func(v string) { tree.ObjdirPath = v })
			}
			cfg.Trees[name] = tree
		default:
			log.Printf("WARNING: unknown node '%s' in KDL config", nodeName(n))
		}
	}
	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
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

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
