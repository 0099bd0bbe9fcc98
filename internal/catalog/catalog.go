package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
)

// ErrFrozen is returned when registering after the catalog was built
var ErrFrozen = errors.New("catalog is frozen")

// Builder collects code to provider mappings during startup
type Builder struct {
	mu      sync.Mutex
	entries map[diagnostic.Code][]fix.ProviderID
	frozen  bool
}

// NewBuilder creates an empty catalog builder
func NewBuilder() *Builder {
	return &Builder{entries: make(map[diagnostic.Code][]fix.ProviderID)}
}

// Register appends providers to the list of a code, in call order. A
// provider already listed for the code is ignored.
func (b *Builder) Register(code diagnostic.Code, ids ...fix.ProviderID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen {
		return fmt.Errorf("failed to register %q: %w", code, ErrFrozen)
	}

	for _, id := range ids {
		listed := false
		for _, existing := range b.entries[code] {
			if existing == id {
				listed = true
				break
			}
		}
		if !listed {
			b.entries[code] = append(b.entries[code], id)
		}
	}
	return nil
}

// Build freezes the builder and returns the immutable catalog
func (b *Builder) Build() *Catalog {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frozen = true
	entries := make(map[diagnostic.Code][]fix.ProviderID, len(b.entries))
	for code, ids := range b.entries {
		entries[code] = append([]fix.ProviderID(nil), ids...)
	}
	return &Catalog{entries: entries}
}

// Catalog maps diagnostic codes to the providers that fix them
type Catalog struct {
	entries map[diagnostic.Code][]fix.ProviderID
}

// Lookup returns the providers of a code in registration order. Unknown
// codes yield nil.
func (c *Catalog) Lookup(code diagnostic.Code) []fix.ProviderID {
	ids := c.entries[code]
	if len(ids) == 0 {
		return nil
	}
	return append([]fix.ProviderID(nil), ids...)
}

// Has reports whether a code has at least one provider
func (c *Catalog) Has(code diagnostic.Code) bool {
	return len(c.entries[code]) > 0
}

// Codes returns all registered codes in sorted order
func (c *Catalog) Codes() []diagnostic.Code {
	codes := make([]diagnostic.Code, 0, len(c.entries))
	for code := range c.entries {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Validate reports every entry naming a provider the registry does not know
func (c *Catalog) Validate(reg *fix.Registry) error {
	var missing []string
	for _, code := range c.Codes() {
		for _, id := range c.entries[code] {
			if _, ok := reg.Get(id); !ok {
				missing = append(missing, fmt.Sprintf("%s -> %s", code, id))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("catalog references unknown providers: %s", strings.Join(missing, ", "))
	}
	return nil
}
