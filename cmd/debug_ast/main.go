package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/javaast"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/debug_ast/main.go <java_file_path>")
		os.Exit(1)
	}

	filePath := os.Args[1]
	fmt.Printf("Analyzing AST for file: %s\n\n", filePath)

	content, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}

	snap := document.NewSnapshot("file://"+filepath.ToSlash(absPath), "java", 0, string(content))
	tree, err := javaast.Parse(context.Background(), snap)
	if err != nil {
		fmt.Printf("Error parsing file: %v\n", err)
		os.Exit(1)
	}
	defer tree.Close()

	if err := tree.DebugAST(os.Stdout); err != nil {
		fmt.Printf("Error printing AST: %v\n", err)
		os.Exit(1)
	}
}
