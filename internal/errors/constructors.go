package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *StubforgeError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(reason string, cause error) *StubforgeError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "invalid configuration").
		WithContext("reason", reason)
}

func VersionUnresolvable(module string) *StubforgeError {
	return New(CategoryConfig, SeverityError, "no version found in requirements for module").
		WithContext("module", module)
}

// Generation errors

func GenerationFailed(unit string, cause error) *StubforgeError {
	return Wrap(cause, CategoryGeneration, SeverityFatal, "stub generation failed").
		WithContext("unit", unit)
}

func PackageNotFound(pkg string) *StubforgeError {
	return New(CategoryGeneration, SeverityFatal, "nothing to build for package").
		WithContext("package", pkg)
}

// Filesystem errors

func LayeringFailed(path string, cause error) *StubforgeError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "override layering failed").
		WithContext("path", path)
}

func WorkspaceError(operation string, cause error) *StubforgeError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

// State errors

func RecordWriteFailed(module string, cause error) *StubforgeError {
	return Wrap(cause, CategoryState, SeverityFatal, "build record write failed").
		WithContext("module", module)
}

// Runtime errors

func ToolchainError(tool string, cause error) *StubforgeError {
	return Wrap(cause, CategoryRuntime, SeverityFatal, "toolchain probe failed").
		WithContext("tool", tool)
}

// Internal errors

func InternalError(message string, cause error) *StubforgeError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
