// Command wisp-tool-gen scans a source tree for functions marked with the
// wisp:tool directive and emits the deterministic tool manifest artifact.
// The manifest is byte-stable: scanning the same tree twice produces
// identical output, which CI relies on to detect undeclared tool drift.
package main

import (
	"context"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-openapi/swag"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"github.com/wispworks/wisp/pkg/slogx"
	"github.com/wispworks/wisp/tool"
)

const marker = "wisp:tool"

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

// toolFuncInfo is what the scanner extracts per marked function.
type toolFuncInfo struct {
	name        string
	description string
	passthrough bool
	featureFlag string
}

// collectTools walks a parsed file and returns the marked functions in
// source order. The directive comment has the shape:
//
//	// wisp:tool [passthrough] [flag=<name>]
//	// Description text on the following lines.
func collectTools(fileAST *ast.File) []toolFuncInfo {
	var tools []toolFuncInfo
	for _, decl := range fileAST.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Doc == nil {
			continue
		}

		info, marked := parseDirective(fn.Doc)
		if !marked {
			continue
		}
		info.name = swag.ToFileName(fn.Name.Name)
		tools = append(tools, info)
	}
	return tools
}

func parseDirective(doc *ast.CommentGroup) (toolFuncInfo, bool) {
	var (
		info   toolFuncInfo
		marked bool
		desc   []string
	)
	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		if rest, ok := strings.CutPrefix(text, marker); ok {
			marked = true
			for _, field := range strings.Fields(rest) {
				switch {
				case field == "passthrough":
					info.passthrough = true
				case strings.HasPrefix(field, "flag="):
					info.featureFlag = strings.TrimPrefix(field, "flag=")
				}
			}
			continue
		}
		if marked && text != "" {
			desc = append(desc, text)
		}
	}
	info.description = strings.Join(desc, " ")
	return info, marked
}

// scanDir parses every non-test Go file under root and collects marked
// functions.
func scanDir(root string) ([]toolFuncInfo, error) {
	var tools []toolFuncInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		fset := token.NewFileSet()
		fileAST, perr := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if perr != nil {
			return fmt.Errorf("parse %s: %w", path, perr)
		}
		tools = append(tools, collectTools(fileAST)...)
		return nil
	})
	return tools, err
}

// buildManifest registers the scanned tools and exports the artifact.
func buildManifest(tools []toolFuncInfo) ([]byte, error) {
	reg := tool.NewRegistry()
	for _, t := range tools {
		desc := tool.Descriptor{
			Name:        t.name,
			Description: t.description,
			FeatureFlag: t.featureFlag,
			Passthrough: t.passthrough,
		}
		if !t.passthrough {
			// The manifest only needs metadata; a stub satisfies
			// registration without shipping behavior.
			desc.Handler = func(context.Context, tool.Params) {}
		}
		if err := reg.Register(desc); err != nil {
			return nil, err
		}
	}
	reg.Freeze()
	return reg.BuildManifest().MarshalIndent()
}

func main() {
	dir := flag.String("dir", ".", "directory to scan for wisp:tool functions")
	out := flag.String("out", "", "manifest output path, stdout when empty")
	flag.Parse()

	if err := run(*dir, *out); err != nil {
		slog.Error("manifest generation failed", slogx.Error(err))
		os.Exit(1)
	}
}

func run(dir, out string) error {
	tools, err := scanDir(dir)
	if err != nil {
		return err
	}
	slog.Info("scanned tool tree", slog.String("dir", dir), slog.Int("tools", len(tools)))

	manifest, err := buildManifest(tools)
	if err != nil {
		return err
	}

	if out == "" {
		_, err = os.Stdout.Write(manifest)
		return err
	}
	return os.WriteFile(out, manifest, 0o644)
}
