package injector

import (
	"github.com/google/wire"
	"github.com/ngaut/NexusCRM-sub002/internal/auth"
	"github.com/ngaut/NexusCRM-sub002/internal/conf"
	convbiz "github.com/ngaut/NexusCRM-sub002/internal/conversation/biz"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/budget"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/compactor"
	convdata "github.com/ngaut/NexusCRM-sub002/internal/conversation/data"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/llm"
	convservice "github.com/ngaut/NexusCRM-sub002/internal/conversation/service"
	"github.com/ngaut/NexusCRM-sub002/internal/data"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/ngaut/NexusCRM-sub002/internal/server"
	"go.uber.org/zap"
)

// ProviderSet is the Wire provider set for all dependencies
var ProviderSet = wire.NewSet(
	dataProviderSet,
	repositoryProviderSet,
	engineProviderSet,
	useCaseProviderSet,
	serviceProviderSet,
	serverProviderSet,
)

var dataProviderSet = wire.NewSet(
	data.NewData,
)

var repositoryProviderSet = wire.NewSet(
	provideConversationRepo,
	providePinnedFileRepo,
	provideTransactor,
	provideLocker,
)

// Budget accounting and compaction
var engineProviderSet = wire.NewSet(
	providePromptBuilder,
	provideAccountant,
	provideSummarizer,
	provideCompactor,
)

var useCaseProviderSet = wire.NewSet(
	convbiz.NewConversationUseCase,
	provideContextUseCase,
	provideAssistantUseCase,
)

var serviceProviderSet = wire.NewSet(
	convservice.NewAssistantService,
)

var serverProviderSet = wire.NewSet(
	provideJWTManager,
	server.NewHTTPServer,
)

// Repository providers

func provideConversationRepo(d *data.Data) convbiz.ConversationRepo {
	return convdata.NewConversationRepo(d.DB)
}

func providePinnedFileRepo(d *data.Data) convbiz.PinnedFileRepo {
	return convdata.NewPinnedFileRepo(d.DB)
}

func provideTransactor(d *data.Data) convbiz.Transactor {
	return d.DB
}

// provideLocker shares compaction locks across replicas when Redis is on
func provideLocker(d *data.Data, log *logger.Logger) convbiz.Locker {
	if d.Redis != nil {
		return convdata.NewRedisLocker(d.Redis, log)
	}
	return convdata.NewLocalLocker()
}

// Engine providers

func providePromptBuilder(config *conf.Config) *convbiz.PromptBuilder {
	return convbiz.NewPromptBuilder(config.Assistant.SystemPrompt)
}

// provideAccountant counts fixed overhead once at startup. An unknown
// encoding falls back to the character heuristic.
func provideAccountant(config *conf.Config, prompt *convbiz.PromptBuilder, log *logger.Logger) *budget.Accountant {
	var counter budget.Counter = budget.EstimateCounter{}
	tc, err := budget.NewTiktokenCounter(config.Assistant.TokenEncoding)
	if err != nil {
		log.Warn("tiktoken unavailable, estimating overhead from characters",
			zap.String("encoding", config.Assistant.TokenEncoding),
			zap.Error(err))
	} else {
		counter = tc
	}

	overhead := budget.ComputeOverhead(counter, prompt.Base(), config.Assistant.Tools)
	log.Info("context overhead computed",
		zap.Int("system_prompt_tokens", overhead.SystemPromptTokens),
		zap.Int("tools_tokens", overhead.ToolsTokens),
		zap.Int("max_context_tokens", config.Assistant.MaxTokens))
	return budget.NewAccountant(config.Assistant.Config, overhead)
}

func provideSummarizer(config *conf.Config, log *logger.Logger) compactor.Summarizer {
	return llm.NewOpenAISummarizer(&config.LLM, log.Named("summarizer"))
}

func provideCompactor(s compactor.Summarizer, config *conf.Config) *compactor.Compactor {
	opts := compactor.DefaultOptions()
	opts.KeepUserTurns = config.Assistant.KeepUserTurns
	return compactor.New(s, opts)
}

// Use case providers

func provideContextUseCase(repo convbiz.PinnedFileRepo, prompt *convbiz.PromptBuilder, config *conf.Config, log *logger.Logger) *convbiz.ContextUseCase {
	return convbiz.NewContextUseCase(repo, prompt, config.Assistant.ContextRoot, config.Assistant.MaxFileBytes, log)
}

func provideAssistantUseCase(
	conversations *convbiz.ConversationUseCase,
	contexts *convbiz.ContextUseCase,
	accountant *budget.Accountant,
	comp *compactor.Compactor,
	locker convbiz.Locker,
	config *conf.Config,
	log *logger.Logger,
) *convbiz.AssistantUseCase {
	return convbiz.NewAssistantUseCase(conversations, contexts, accountant, comp, locker, config.Assistant.CompactionLockTTL, log)
}

// Server providers

func provideJWTManager(config *conf.Config) *auth.JWTManager {
	return auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTIssuer)
}
