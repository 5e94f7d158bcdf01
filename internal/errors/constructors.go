package errors

// Convenience constructors for the error taxonomy used across the build.

// Config errors

func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *BuildError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// SourceUnavailable marks a reference package whose documentation index could
// not be resolved. Fatal for that package's table; the package name is always
// attached so downstream reports can attribute the failure.
func SourceUnavailable(pkg string, cause error) *BuildError {
	return Wrap(cause, CategorySource, SeverityFatal, "reference source unavailable").
		WithContext("package", pkg)
}

// MalformedFrontMatter marks an article whose front matter is missing or
// invalid. Fatal for that article; names the document and the offending field.
func MalformedFrontMatter(doc, field string) *BuildError {
	return New(CategoryFrontMatter, SeverityFatal, "malformed front matter").
		WithContext("document", doc).
		WithContext("field", field)
}

// ExecutionFailure marks a code segment that raised during rendering. Fatal
// for the article's remaining segments; carries the segment position.
func ExecutionFailure(doc string, segment int, cause error) *BuildError {
	return Wrap(cause, CategoryExecution, SeverityFatal, "code segment execution failed").
		WithContext("document", doc).
		WithContext("segment", segment)
}

// Assembly and output errors

func AssemblyError(page string, cause error) *BuildError {
	return Wrap(cause, CategoryAssembly, SeverityFatal, "page assembly failed").
		WithContext("page", page)
}

func WriteError(path string, cause error) *BuildError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "output write failed").
		WithContext("path", path)
}

// Git errors

func GitSyncError(source string, cause error) *BuildError {
	return Wrap(cause, CategoryGit, SeverityFatal, "content source sync failed").
		WithContext("source", source)
}
