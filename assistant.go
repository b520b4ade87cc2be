// Copyright 2025 Pathas Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package manualbot

import (
	"io"
	"log/slog"

	"github.com/pathas/manualbot/ai"
	"github.com/pathas/manualbot/ai/openai"
	"github.com/pathas/manualbot/conversation"
	"github.com/pathas/manualbot/index"
	"github.com/pathas/manualbot/index/memory"
	"github.com/pathas/manualbot/ingestion"
	"github.com/pathas/manualbot/reindex"
	"github.com/pathas/manualbot/retrieval"
	"github.com/pathas/manualbot/session"
	sessionbadger "github.com/pathas/manualbot/session/badger"
)

// Assistant wires the session store, index gateway, AI provider and
// pipelines into one unit with a shared lifecycle.
type Assistant struct {
	backend   *sessionbadger.Backend
	sessions  session.Store
	gateway   index.Gateway
	provider  ai.Provider
	synthesis bool
	logger    *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	aiConfig         *ai.Config
	provider         ai.Provider
	gateway          index.Gateway
	inMemorySessions bool
	synthesis        bool
}

// WithAIConfig sets the AI service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) AssistantOption {
	return func(o *assistantOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects a pre-built AI provider, bypassing the
// OpenAI-compatible default. The assistant takes ownership and closes it.
func WithProvider(provider ai.Provider) AssistantOption {
	return func(o *assistantOptions) {
		o.provider = provider
	}
}

// WithGateway injects a pre-built index gateway, for example a qdrant
// client. The assistant takes ownership and closes it. Default is an
// in-process gateway that does not survive restarts.
func WithGateway(gateway index.Gateway) AssistantOption {
	return func(o *assistantOptions) {
		o.gateway = gateway
	}
}

// WithInMemorySessions keeps sessions in an ephemeral badger backend
// instead of the on-disk one at the session path.
func WithInMemorySessions() AssistantOption {
	return func(o *assistantOptions) {
		o.inMemorySessions = true
	}
}

// WithoutSynthesis disables answer synthesis; answers are always the
// raw manual excerpts with citations.
func WithoutSynthesis() AssistantOption {
	return func(o *assistantOptions) {
		o.synthesis = false
	}
}

// NewAssistant creates an assistant with sessions stored at sessionPath.
func NewAssistant(sessionPath string, opts ...AssistantOption) (*Assistant, error) {
	options := &assistantOptions{
		aiConfig:  ai.DefaultConfig(),
		synthesis: true,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := sessionbadger.OpenBackend(sessionPath, options.inMemorySessions)
	if err != nil {
		return nil, err
	}

	sessions, err := sessionbadger.NewStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	gateway := options.gateway
	if gateway == nil {
		gateway = memory.NewGateway()
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Assistant{
		backend:   backend,
		sessions:  sessions,
		gateway:   gateway,
		provider:  provider,
		synthesis: options.synthesis,
		logger:    slog.Default(),
	}, nil
}

// Close releases the assistant's resources.
func (a *Assistant) Close() error {
	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
	}

	if err := a.gateway.Close(); err != nil {
		a.logger.Error("error closing index gateway", "err", err)
		return err
	}

	if err := a.sessions.Close(); err != nil {
		a.logger.Error("error closing session store", "err", err)
		return err
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing session backend", "err", err)
		return err
	}
	return nil
}

// Sessions returns the session store.
func (a *Assistant) Sessions() session.Store {
	return a.sessions
}

// Gateway returns the index gateway.
func (a *Assistant) Gateway() index.Gateway {
	return a.gateway
}

// NewIngestionPipeline creates an ingestion pipeline over the
// assistant's gateway and embedder.
func (a *Assistant) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(a.gateway, a.provider.Embedder(), opts...)
}

// NewRetrievalPipeline creates a retrieval pipeline over the assistant's
// gateway and AI services. Synthesis, when enabled, degrades to raw
// excerpts if the completion service is unreachable.
func (a *Assistant) NewRetrievalPipeline(opts ...retrieval.Option) (*retrieval.Pipeline, error) {
	if a.synthesis {
		opts = append([]retrieval.Option{retrieval.WithCompleter(a.provider.Completer())}, opts...)
	}
	return retrieval.NewPipeline(a.gateway, a.provider.Embedder(), opts...)
}

// NewDispatcher creates a conversation dispatcher backed by the
// assistant's session store and a retrieval pipeline.
func (a *Assistant) NewDispatcher(opts ...retrieval.Option) (*conversation.Dispatcher, error) {
	pipeline, err := a.NewRetrievalPipeline(opts...)
	if err != nil {
		return nil, err
	}
	machine, err := conversation.NewMachine(pipeline)
	if err != nil {
		return nil, err
	}
	return conversation.NewDispatcher(a.sessions, machine)
}

// NewReindexer creates a reindexer over the assistant's gateway and
// embedder. Progress is written to the given writer.
func (a *Assistant) NewReindexer(config *reindex.Config, progress io.Writer) (*reindex.Reindexer, error) {
	return reindex.NewReindexer(a.gateway, a.provider.Embedder(), config, progress)
}
