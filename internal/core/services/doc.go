// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The answer pipeline is: IngestionService writes versioned chunks,
// Retriever finds committed ones, PromptAssembler renders them and
// AnswerOrchestrator calls the generator.
package services
