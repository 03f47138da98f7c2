// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package llm

import "fmt"

// Provider identifiers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"
)

// ProviderInfo contains metadata for a provider.
type ProviderInfo struct {
	ID          string
	Name        string
	BaseURL     string // OpenAI-compatible endpoint
	NeedsAPIKey bool
	Models      []ModelInfo
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string
	Name        string
	InputCost   float64 // cost per 1M input tokens in USD
	OutputCost  float64 // cost per 1M output tokens in USD
	ContextSize int     // context window in tokens
}

// AllProviders returns metadata for all supported providers.
func AllProviders() []ProviderInfo {
	return []ProviderInfo{
		{
			ID:          ProviderGemini,
			Name:        "Google Gemini",
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai/",
			NeedsAPIKey: true,
			Models: []ModelInfo{
				{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", InputCost: 0.10, OutputCost: 0.40, ContextSize: 1048576},
				{ID: "gemini-2.0-flash-lite", Name: "Gemini 2.0 Flash-Lite", InputCost: 0.075, OutputCost: 0.30, ContextSize: 1048576},
				{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", InputCost: 0.30, OutputCost: 2.50, ContextSize: 1048576},
				{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", InputCost: 1.25, OutputCost: 10.00, ContextSize: 1048576},
			},
		},
		{
			ID:          ProviderOpenAI,
			Name:        "OpenAI",
			BaseURL:     "https://api.openai.com/v1/",
			NeedsAPIKey: true,
			Models: []ModelInfo{
				{ID: "gpt-4o", Name: "GPT-4o", InputCost: 2.50, OutputCost: 10.00, ContextSize: 128000},
				{ID: "gpt-4o-mini", Name: "GPT-4o Mini", InputCost: 0.15, OutputCost: 0.60, ContextSize: 128000},
				{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", InputCost: 0.40, OutputCost: 1.60, ContextSize: 1047576},
				{ID: "gpt-4.1-nano", Name: "GPT-4.1 Nano", InputCost: 0.10, OutputCost: 0.40, ContextSize: 1047576},
			},
		},
		{
			ID:          ProviderGroq,
			Name:        "Groq",
			BaseURL:     "https://api.groq.com/openai/v1/",
			NeedsAPIKey: true,
			Models: []ModelInfo{
				{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", InputCost: 0.59, OutputCost: 0.79, ContextSize: 128000},
				{ID: "llama-3.1-8b-instant", Name: "Llama 3.1 8B", InputCost: 0.05, OutputCost: 0.08, ContextSize: 131072},
			},
		},
		{
			ID:          ProviderOllama,
			Name:        "Ollama",
			BaseURL:     "http://localhost:11434/v1/",
			NeedsAPIKey: false,
			Models: []ModelInfo{
				{ID: "llama3.3", Name: "Llama 3.3", ContextSize: 128000},
				{ID: "qwen2.5", Name: "Qwen 2.5", ContextSize: 128000},
				{ID: "gemma2", Name: "Gemma 2", ContextSize: 8192},
			},
		},
	}
}

// GetProviderInfo returns provider metadata by ID.
func GetProviderInfo(providerID string) (*ProviderInfo, error) {
	for _, p := range AllProviders() {
		if p.ID == providerID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("unknown provider: %s", providerID)
}

// GetModelInfo returns model info for a provider and model ID.
func GetModelInfo(providerID, modelID string) (*ModelInfo, error) {
	pInfo, err := GetProviderInfo(providerID)
	if err != nil {
		return nil, err
	}
	for _, m := range pInfo.Models {
		if m.ID == modelID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("unknown model %s for provider %s", modelID, providerID)
}

// CalculateCost estimates the cost of a call from token usage and model
// pricing. Unknown models cost nothing.
func CalculateCost(providerID, modelID string, promptTokens, completionTokens int64) float64 {
	info, err := GetModelInfo(providerID, modelID)
	if err != nil {
		return 0
	}
	inputCost := float64(promptTokens) / 1_000_000 * info.InputCost
	outputCost := float64(completionTokens) / 1_000_000 * info.OutputCost
	return inputCost + outputCost
}
