// Package config provides configuration loading and validation for the analysis engine.
package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/sections"
)

// EnvPrefix prefixes environment overrides (ATS_AI_MODEL, ATS_LOG_LEVEL, ...).
const EnvPrefix = "ATS"

// WeightTolerance is the accepted deviation of the weight sum from 1.0.
const WeightTolerance = 1e-6

// Config is the complete engine configuration. It is loaded once at startup
// and never modified afterwards.
type Config struct {
	Log     LogConfig          `mapstructure:"log"`
	Rules   Rules              `mapstructure:"rules"`
	Weights map[string]float64 `mapstructure:"weights" validate:"required,min=1,dive,gte=0,lte=1"`
	Cache   CacheConfig        `mapstructure:"cache"`
	AI      AIConfig           `mapstructure:"ai"`
}

// LogConfig selects the logger encoding and level.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Rules configures the section detectors.
type Rules struct {
	// Version is part of every cache fingerprint; bump it to invalidate cached results.
	Version        string   `mapstructure:"version" validate:"required"`
	Dialect        string   `mapstructure:"dialect" validate:"oneof=uk indian"`
	HeaderLines    int      `mapstructure:"header_lines" validate:"gte=1,lte=50"`
	VocabularyFile string   `mapstructure:"vocabulary_file"`
	Role           string   `mapstructure:"role" validate:"omitempty,oneof=general software_developer data_scientist project_manager"`
	Lexicons       Lexicons `mapstructure:"lexicons"`
	Tuning         Tuning   `mapstructure:"tuning"`
}

// Lexicons overrides the built-in word lists. Empty lists keep the defaults.
type Lexicons struct {
	WeakVerbs             []string `mapstructure:"weak_verbs"`
	StrongVerbs           []string `mapstructure:"strong_verbs"`
	Buzzwords             []string `mapstructure:"buzzwords"`
	TeamworkIndicators    []string `mapstructure:"teamwork_indicators"`
	AchievementIndicators []string `mapstructure:"achievement_indicators"`
	TechnicalSkills       []string `mapstructure:"technical_skills"`
	SoftSkills            []string `mapstructure:"soft_skills"`
	Typos                 []string `mapstructure:"typos"`
}

// Tuning holds the per-rule increments and penalties.
type Tuning struct {
	NeutralScore              float64 `mapstructure:"neutral_score" validate:"gte=0,lte=10"`
	WeakVerbPenalty           float64 `mapstructure:"weak_verb_penalty" validate:"gte=0,lte=10"`
	BuzzwordPenalty           float64 `mapstructure:"buzzword_penalty" validate:"gte=0,lte=10"`
	QuantifiableBase          float64 `mapstructure:"quantifiable_base" validate:"gte=0,lte=10"`
	QuantifiableIncrement     float64 `mapstructure:"quantifiable_increment" validate:"gte=0,lte=10"`
	DateFormatPenalty         float64 `mapstructure:"date_format_penalty" validate:"gte=0,lte=10"`
	GrammarPenalty            float64 `mapstructure:"grammar_penalty" validate:"gte=0,lte=10"`
	GrammarPenaltyCap         int     `mapstructure:"grammar_penalty_cap" validate:"gte=0"`
	GrammarDecay              float64 `mapstructure:"grammar_decay" validate:"gte=0,lte=1"`
	TeamworkBase              float64 `mapstructure:"teamwork_base" validate:"gte=0,lte=10"`
	TeamworkIncrement         float64 `mapstructure:"teamwork_increment" validate:"gte=0,lte=10"`
	LineRulePenalty           float64 `mapstructure:"line_rule_penalty" validate:"gte=0,lte=10"`
	MaxLineLength             int     `mapstructure:"max_line_length" validate:"gte=40"`
	MinBulletWords            int     `mapstructure:"min_bullet_words" validate:"gte=1"`
	UnnecessarySectionPenalty float64 `mapstructure:"unnecessary_section_penalty" validate:"gte=0,lte=10"`
}

// CacheConfig configures the result cache and its optional Redis tier.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gte=0"`
	RedisAddr     string        `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0,lte=15"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
}

// AIConfig configures the optional augmentation step. Model, MaxTokens and
// Temperature are passed to the provider unchanged.
type AIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Provider       string        `mapstructure:"provider" validate:"oneof=gemini"`
	APIKey         string        `mapstructure:"api_key" validate:"required_if=Enabled true"`
	Model          string        `mapstructure:"model" validate:"required"`
	MaxTokens      int           `mapstructure:"max_tokens" validate:"gte=1,lte=8192"`
	Temperature    float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay      time.Duration `mapstructure:"base_delay" validate:"gte=0"`
	MaxDelay       time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
	ScoreThreshold float64       `mapstructure:"score_threshold" validate:"gte=0,lte=10"`
	MaxSections    int           `mapstructure:"max_sections" validate:"gte=1,lte=15"`
	Concurrency    int           `mapstructure:"concurrency" validate:"gte=1,lte=15"`
}

// DefaultWeights is the built-in weight table; it sums to 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		string(sections.Summary):              0.10,
		string(sections.ContactDetails):       0.08,
		string(sections.FormattingLayout):     0.06,
		string(sections.ATSKeywords):          0.10,
		string(sections.SkillsRelevance):      0.07,
		string(sections.AchievementsVsDuties): 0.07,
		string(sections.QuantifiableImpact):   0.10,
		string(sections.WeakVerbs):            0.08,
		string(sections.Buzzwords):            0.05,
		string(sections.Teamwork):             0.05,
		string(sections.Dates):                0.05,
		string(sections.GrammarSpelling):      0.07,
		string(sections.LineByLine):           0.06,
		string(sections.EducationClarity):     0.03,
		string(sections.UnnecessarySections):  0.03,
	}
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Rules: Rules{
			Version:     "2024.1",
			Dialect:     "uk",
			HeaderLines: 8,
			Role:        "general",
			Tuning: Tuning{
				NeutralScore:              5.0,
				WeakVerbPenalty:           0.5,
				BuzzwordPenalty:           0.5,
				QuantifiableBase:          2.0,
				QuantifiableIncrement:     1.0,
				DateFormatPenalty:         2.0,
				GrammarPenalty:            0.5,
				GrammarPenaltyCap:         6,
				GrammarDecay:              0.25,
				TeamworkBase:              3.0,
				TeamworkIncrement:         1.0,
				LineRulePenalty:           2.5,
				MaxLineLength:             160,
				MinBulletWords:            4,
				UnnecessarySectionPenalty: 2.5,
			},
		},
		Weights: DefaultWeights(),
		Cache: CacheConfig{
			TTL:           time.Hour,
			SweepInterval: 5 * time.Minute,
			RedisPrefix:   "ats:",
		},
		AI: AIConfig{
			Provider:       "gemini",
			Model:          "gemini-2.5-flash",
			MaxTokens:      800,
			Temperature:    0.3,
			Timeout:        20 * time.Second,
			MaxRetries:     2,
			BaseDelay:      500 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			ScoreThreshold: 7.0,
			MaxSections:    5,
			Concurrency:    3,
		},
	}
}

// Load reads configuration from path (YAML, JSON or TOML by extension) on
// top of the defaults, then applies ATS_* environment overrides. An empty
// path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())
	// The Gemini key is commonly exported without the prefix.
	if err := v.BindEnv("ai.api_key", EnvPrefix+"_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &Error{Message: fmt.Sprintf("failed to read config file %s", path), Cause: err}
		}
	}

	cfg := Default()
	// Weights from a file replace the default table instead of merging into it.
	if v.InConfig("weights") {
		cfg.Weights = nil
	}

	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, &Error{Message: "failed to decode config", Cause: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every scalar default so environment overrides are
// picked up by AutomaticEnv during Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("rules.version", d.Rules.Version)
	v.SetDefault("rules.dialect", d.Rules.Dialect)
	v.SetDefault("rules.header_lines", d.Rules.HeaderLines)
	v.SetDefault("rules.vocabulary_file", d.Rules.VocabularyFile)
	v.SetDefault("rules.role", d.Rules.Role)

	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.sweep_interval", d.Cache.SweepInterval)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.redis_prefix", d.Cache.RedisPrefix)

	v.SetDefault("ai.enabled", d.AI.Enabled)
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("ai.max_retries", d.AI.MaxRetries)
	v.SetDefault("ai.base_delay", d.AI.BaseDelay)
	v.SetDefault("ai.max_delay", d.AI.MaxDelay)
	v.SetDefault("ai.score_threshold", d.AI.ScoreThreshold)
	v.SetDefault("ai.max_sections", d.AI.MaxSections)
	v.SetDefault("ai.concurrency", d.AI.Concurrency)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and the weight table. Problems are collected
// into a single *Error.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &Error{Message: "config validation failed", Cause: err}
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	problems = append(problems, validateWeights(c.Weights)...)

	if len(problems) > 0 {
		return &Error{Message: "invalid configuration", Problems: problems}
	}
	return nil
}

func validateWeights(weights map[string]float64) []string {
	var problems []string

	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	sum := 0.0
	for _, name := range names {
		if _, err := sections.Parse(name); err != nil {
			problems = append(problems, fmt.Sprintf("weights: %v", err))
		}
		sum += weights[name]
	}

	if len(weights) > 0 && math.Abs(sum-1.0) > WeightTolerance {
		problems = append(problems, fmt.Sprintf("weights: sum is %.6f, want 1.0", sum))
	}
	return problems
}

// SectionWeights converts the weight table to section kinds.
func (c *Config) SectionWeights() (map[sections.Kind]float64, error) {
	out := make(map[sections.Kind]float64, len(c.Weights))
	for name, w := range c.Weights {
		kind, err := sections.Parse(name)
		if err != nil {
			return nil, err
		}
		out[kind] = w
	}
	return out, nil
}

// Error reports a configuration defect.
type Error struct {
	Message  string
	Problems []string
	Cause    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("config error: ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	for _, p := range e.Problems {
		sb.WriteString("\n  - ")
		sb.WriteString(p)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Category implements apperr.Categorized.
func (e *Error) Category() apperr.Category {
	return apperr.CategoryConfiguration
}
