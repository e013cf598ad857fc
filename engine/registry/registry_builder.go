package registry

import (
	"log/slog"
	"time"
)

// RegistryBuilderOption is a functional option for configuring a Registry.
type RegistryBuilderOption func(*registry)

// WithFileOptions sets the file names slots may be bound to.
//
// Parameters:
//   - files: the candidate motion files
//
// Returns:
//   - RegistryBuilderOption: functional option to set the file options
func WithFileOptions(files ...string) RegistryBuilderOption {
	return func(r *registry) {
		r.fileOptions = append([]string(nil), files...)
	}
}

// WithPalette sets the colors cycled through as slots are added. An empty palette keeps the default.
//
// Parameters:
//   - palette: the joint and bone color pairs
//
// Returns:
//   - RegistryBuilderOption: functional option to set the palette
func WithPalette(palette ...ColorPair) RegistryBuilderOption {
	return func(r *registry) {
		if len(palette) > 0 {
			r.palette = append([]ColorPair(nil), palette...)
		}
	}
}

// WithFetchWorkers sets how many fetches run in parallel during a reload.
//
// Parameters:
//   - n: the worker count, at least 1
//
// Returns:
//   - RegistryBuilderOption: functional option to set the worker count
func WithFetchWorkers(n int) RegistryBuilderOption {
	return func(r *registry) {
		r.workers = max(n, 1)
	}
}

// WithFetchTimeout bounds a whole reload.
//
// Parameters:
//   - d: the timeout
//
// Returns:
//   - RegistryBuilderOption: functional option to set the timeout
func WithFetchTimeout(d time.Duration) RegistryBuilderOption {
	return func(r *registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger reload failures are reported to.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - RegistryBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) RegistryBuilderOption {
	return func(r *registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}
