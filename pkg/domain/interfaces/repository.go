package interfaces

// Repository is the single authoritative shared store. Session mirrors,
// meeting artifacts, context documents, memory records and user settings
// all live behind it; the result cache is deliberately NOT part of it
// (memoization only, never a source of truth).
type Repository interface {
	Meeting() MeetingRepository
	ContextDoc() ContextDocRepository
	Memory() MemoryRepository
	User() UserRepository

	Close() error
}
