package main

import (
	"fmt"
	"log"
	"os"

	"github.com/liberty-tools/liberty-lsp/internal/catalog"
	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/jakarta"
)

func main() {
	b := catalog.NewBuilder()
	rb := fix.NewRegistryBuilder()
	if err := jakarta.Register(b, rb); err != nil {
		log.Fatalf("Failed to register fixes: %v", err)
	}
	reg, err := rb.Build()
	if err != nil {
		log.Fatalf("Failed to build fix registry: %v", err)
	}
	cat := b.Build()

	if err := cat.Validate(reg); err != nil {
		fmt.Printf("Catalog is inconsistent:\n%v\n\n", err)
	}

	codes := cat.Codes()
	if len(os.Args) > 1 {
		codes = nil
		for _, arg := range os.Args[1:] {
			codes = append(codes, diagnostic.Code(arg))
		}
	}

	fmt.Printf("Found %d diagnostic codes and %d fix providers\n\n", len(cat.Codes()), len(reg.IDs()))
	for _, code := range codes {
		ids := cat.Lookup(code)
		if len(ids) == 0 {
			fmt.Printf("%s: no fixes\n", code)
			continue
		}
		fmt.Printf("%s:\n", code)
		for _, id := range ids {
			fmt.Printf("  - %s\n", id)
		}
	}
}
