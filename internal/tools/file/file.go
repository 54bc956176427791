// Package file implements the sandboxed file tool contracts: every path
// resolves against a sandbox root, escapes and sensitive paths are
// rejected, creation is atomic, and directory delete is non-recursive
// unless explicitly flagged.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"hearth/internal/tools"
)

// Handler resolves and performs file operations under a single sandbox root.
type Handler struct {
	root string
}

// New creates a Handler rooted at root. root is made absolute at
// construction time so later escape checks compare like with like.
func New(root string) (*Handler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("file: resolve sandbox root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("file: create sandbox root: %w", err)
	}
	return &Handler{root: abs}, nil
}

var sensitivePathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)\.env$`),
	regexp.MustCompile(`(^|/)\.ssh/id_\w+$`),
	regexp.MustCompile(`(?i)credentials`),
	regexp.MustCompile(`(^|/)(passwd|shadow|sudoers)$`),
	regexp.MustCompile(`\.(pem|key|p12|pfx)$`),
}

func isSensitive(relPath string) bool {
	for _, re := range sensitivePathPatterns {
		if re.MatchString(relPath) {
			return true
		}
	}
	return false
}

// resolve validates a caller-supplied path and returns its absolute form
// inside the sandbox. Any path containing ".." or resolving outside root is
// rejected, as is any sensitive path, on both read and write.
func (h *Handler) resolve(path string) (string, error) {
	if strings.Contains(path, "..") {
		return "", &tools.SafetyViolationError{Tool: "file", Message: "path must not contain '..'"}
	}
	if isSensitive(path) {
		return "", &tools.SafetyViolationError{Tool: "file", Message: fmt.Sprintf("path %q is a protected sensitive path", path)}
	}

	joined := filepath.Join(h.root, path)
	absRoot := h.root + string(filepath.Separator)
	if joined != h.root && !strings.HasPrefix(joined, absRoot) {
		return "", &tools.SafetyViolationError{Tool: "file", Message: "path escapes sandbox root"}
	}
	return joined, nil
}

// Read returns a file's contents.
func (h *Handler) Read(ctx context.Context, input map[string]interface{}) (string, error) {
	path, _ := input["path"].(string)
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("file_read: %w", err)
	}
	return string(data), nil
}

// Write creates a file atomically (fails if it already exists unless
// overwrite=true is set) "File create is atomic".
func (h *Handler) Write(ctx context.Context, input map[string]interface{}) (string, error) {
	path, _ := input["path"].(string)
	content, _ := input["content"].(string)
	overwrite, _ := input["overwrite"].(bool)

	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("file_write: create parent directories: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("file_write: %s already exists (pass overwrite=true to replace it)", path)
		}
		return "", fmt.Errorf("file_write: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("file_write: %w", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

// List returns the immediate entries of a directory.
func (h *Handler) List(ctx context.Context, input map[string]interface{}) (string, error) {
	path, _ := input["path"].(string)
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("file_list: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		suffix := ""
		if e.IsDir() {
			suffix = "/"
		}
		names = append(names, e.Name()+suffix)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

// Tree returns a recursive directory listing with indentation.
func (h *Handler) Tree(ctx context.Context, input map[string]interface{}) (string, error) {
	path, _ := input["path"].(string)
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	walkErr := filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(resolved, p)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(d.Name())
		if d.IsDir() {
			sb.WriteString("/")
		}
		sb.WriteString("\n")
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("file_tree: %w", walkErr)
	}
	return sb.String(), nil
}

// Search greps file contents under path for a pattern (a plain substring,
// not a shell-interpreted one, so this tool carries none of shell_execute's
// injection surface).
func (h *Handler) Search(ctx context.Context, input map[string]interface{}) (string, error) {
	path, _ := input["path"].(string)
	pattern, _ := input["pattern"].(string)
	if pattern == "" {
		return "", fmt.Errorf("file_search: pattern is required")
	}
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}

	var matches []string
	walkErr := filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil // unreadable file, skip
		}
		if strings.Contains(string(data), pattern) {
			rel, _ := filepath.Rel(h.root, p)
			matches = append(matches, rel)
		}
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("file_search: %w", walkErr)
	}
	if len(matches) == 0 {
		return "no matches", nil
	}
	return strings.Join(matches, "\n"), nil
}

// Info returns size, mode and modification time for a path.
func (h *Handler) Info(ctx context.Context, input map[string]interface{}) (string, error) {
	path, _ := input["path"].(string)
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("file_info: %w", err)
	}
	return fmt.Sprintf("size: %d\nmode: %s\nmodified: %s\nis_dir: %v",
		info.Size(), info.Mode(), info.ModTime(), info.IsDir()), nil
}

// Move renames src to dst, both resolved against the sandbox.
func (h *Handler) Move(ctx context.Context, input map[string]interface{}) (string, error) {
	src, _ := input["src"].(string)
	dst, _ := input["dst"].(string)
	resolvedSrc, err := h.resolve(src)
	if err != nil {
		return "", err
	}
	resolvedDst, err := h.resolve(dst)
	if err != nil {
		return "", err
	}
	if err := os.Rename(resolvedSrc, resolvedDst); err != nil {
		return "", fmt.Errorf("file_move: %w", err)
	}
	return fmt.Sprintf("moved %s to %s", src, dst), nil
}

// Delete removes a file, or a directory when recursive=true. A directory
// delete without recursive=true fails on a non-empty directory: deletion
// is non-recursive unless flagged.
func (h *Handler) Delete(ctx context.Context, input map[string]interface{}) (string, error) {
	path, _ := input["path"].(string)
	recursive, _ := input["recursive"].(bool)
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}

	if recursive {
		if err := os.RemoveAll(resolved); err != nil {
			return "", fmt.Errorf("file_delete: %w", err)
		}
	} else {
		if err := os.Remove(resolved); err != nil {
			return "", fmt.Errorf("file_delete: %w", err)
		}
	}
	return fmt.Sprintf("deleted %s", path), nil
}

// Definitions returns the registry Definitions for every file operation,
// bound to this Handler's sandbox root.
func (h *Handler) Definitions() []tools.Definition {
	pathSchema := func(extra map[string]tools.Property, required ...string) tools.Schema {
		props := map[string]tools.Property{"path": {Type: "string", Description: "Path relative to the sandbox root."}}
		for k, v := range extra {
			props[k] = v
		}
		req := append([]string{"path"}, required...)
		return tools.Schema{Type: "object", Properties: props, Required: req}
	}

	return []tools.Definition{
		{Name: "file_read", Description: "Reads a file's contents.", InputSchema: pathSchema(nil), Handler: h.Read},
		{
			Name:        "file_write",
			Description: "Creates a file with the given content (atomic; fails if it exists unless overwrite=true).",
			InputSchema: pathSchema(map[string]tools.Property{
				"content":   {Type: "string"},
				"overwrite": {Type: "boolean"},
			}, "content"),
			Handler: h.Write,
		},
		{Name: "file_list", Description: "Lists a directory's immediate entries.", InputSchema: pathSchema(nil), Handler: h.List},
		{Name: "file_tree", Description: "Recursively lists a directory.", InputSchema: pathSchema(nil), Handler: h.Tree},
		{
			Name:        "file_search",
			Description: "Searches file contents under path for a literal substring.",
			InputSchema: pathSchema(map[string]tools.Property{"pattern": {Type: "string"}}, "pattern"),
			Handler:     h.Search,
		},
		{Name: "file_info", Description: "Returns size, mode and modification time for a path.", InputSchema: pathSchema(nil), Handler: h.Info},
		{
			Name:        "file_move",
			Description: "Moves or renames a file.",
			InputSchema: tools.Schema{
				Type: "object",
				Properties: map[string]tools.Property{
					"src": {Type: "string"},
					"dst": {Type: "string"},
				},
				Required: []string{"src", "dst"},
			},
			Handler: h.Move,
		},
		{
			Name:        "file_delete",
			Description: "Deletes a file, or a directory when recursive=true.",
			InputSchema: pathSchema(map[string]tools.Property{"recursive": {Type: "boolean"}}),
			Handler:     h.Delete,
		},
	}
}
