package pipeline_type

import "fmt"

// Collaborator errors are converted to this taxonomy at the boundary of the
// component that called them; raw client errors never cross a component
// boundary. A retrieval miss is not an error at all (nil Answer).

// ExtractionError aborts the run; there is no content to build on.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EnhancementError is recoverable: the enrichment service substitutes
// fallback content and the run continues.
type EnhancementError struct {
	Task string
	Err  error
}

func (e *EnhancementError) Error() string {
	return fmt.Sprintf("enhancement task %s failed: %v", e.Task, e.Err)
}

func (e *EnhancementError) Unwrap() error { return e.Err }

// AssemblyError is recoverable: the run degrades to an artifact without the
// derived visualization.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("notebook assembly failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
