// Package kernelerr defines the error-classification interfaces shared
// across the kernel: whether an error is recoverable, whether it signals a
// system-level fault, and whether it should escalate to a human. Concrete
// kernel errors (construct.ValidationError, capability token errors, and
// so on) implement whichever of these apply; callers use the package-level
// helpers rather than type-asserting directly, since an error that
// implements none of them is treated as recoverable, not a system error,
// and non-escalating by default.
package kernelerr

// Recoverable is implemented by errors that can self-report whether the
// operation that produced them may be retried or worked around.
type Recoverable interface {
	Recoverable() bool
}

// SystemFault is implemented by errors that can self-report whether they
// indicate a fault in the kernel itself rather than in caller input.
type SystemFault interface {
	IsSystemFault() bool
}

// Escalating is implemented by errors that can self-report whether they
// should be surfaced to a human rather than handled automatically.
type Escalating interface {
	ShouldEscalate() bool
}

// IsRecoverable reports err's Recoverable() value, defaulting to true for
// errors that don't implement the interface.
func IsRecoverable(err error) bool {
	if r, ok := err.(Recoverable); ok {
		return r.Recoverable()
	}
	return true
}

// IsSystemFault reports err's IsSystemFault() value, defaulting to false.
func IsSystemFault(err error) bool {
	if f, ok := err.(SystemFault); ok {
		return f.IsSystemFault()
	}
	return false
}

// ShouldEscalate reports err's ShouldEscalate() value. An error that is a
// system fault always escalates, regardless of what ShouldEscalate()
// itself reports, matching the kernel-wide rule that system faults are
// never handled silently.
func ShouldEscalate(err error) bool {
	if IsSystemFault(err) {
		return true
	}
	if e, ok := err.(Escalating); ok {
		return e.ShouldEscalate()
	}
	return false
}
