package cli

import (
	"fmt"
	"os"

	"github.com/rklop/SURF-2025/internal/compiler"
	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/store"
	"github.com/rklop/SURF-2025/internal/verifier"
)

// Error codes for descriptor loading and command execution.
const (
	ErrCodeNotFound    = "E001" // descriptor file not found
	ErrCodeCompile     = "E002" // descriptor failed to compile
	ErrCodeInput       = "E003" // malformed command input
	ErrCodeVerify      = "E004" // verification failed with an error
	ErrCodeConformance = "E005" // scenario failures
)

// Descriptor is a loaded, compiled descriptor with its bound schema.
type Descriptor struct {
	Path   string
	Bundle *compiler.Bundle
	Schema *schema.Schema
}

// LoadDescriptor reads, compiles and binds a CUE descriptor file.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("cannot read descriptor %s", path), err)
	}

	bundle, err := compiler.Compile(string(data))
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("descriptor %s failed to compile", path), err)
	}

	sch, err := compiler.BuildSchema(bundle.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("descriptor %s has an invalid schema", path), err)
	}

	return &Descriptor{Path: path, Bundle: bundle, Schema: sch}, nil
}

// openCache returns a verdict cache for the schema: SQLite-backed when
// a store path is given, in-memory otherwise. The returned func closes
// the store and is safe to call either way.
func openCache(path string, sch *schema.Schema) (verifier.Cache, func(), error) {
	if path == "" {
		return verifier.NewMemoryCache(), func() {}, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("cannot open store %s", path), err)
	}
	return store.NewVerdictCache(st, sch, nil), func() { st.Close() }, nil
}
