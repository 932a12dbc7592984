package usecase

// StoreMemory is exported for testing
var StoreMemory = (*UseCases).storeMemory

// StoreTranscript is exported for testing
var StoreTranscript = (*UseCases).storeTranscript

// RunWithRetry is exported for testing
var RunWithRetry = runWithRetry
