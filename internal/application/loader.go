package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/modelscope/eval-scope/infrastructure/predictor"
	"github.com/modelscope/eval-scope/internal/arena"
	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/parser"
)

// ConfigLoader parses and validates run configuration files.
type ConfigLoader struct {
	validator *validator.Validate
}

// NewConfigLoader returns a loader with the run validators registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := RegisterRunValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v}, nil
}

// LoadConfig is a convenience for NewConfigLoader().LoadFromFile(path).
func LoadConfig(path string) (*RunConfig, error) {
	l, err := NewConfigLoader()
	if err != nil {
		return nil, err
	}
	return l.LoadFromFile(path)
}

// LoadFromFile reads path and resolves the relative file entries against
// the configuration file's directory.
func (l *ConfigLoader) LoadFromFile(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewConfigurationError("config", fmt.Errorf("failed to read config file: %w", err))
	}
	cfg, err := l.load(data)
	if err != nil {
		return nil, err
	}
	cfg.Files.resolve(filepath.Dir(path))
	return cfg, nil
}

// LoadFromReader reads a configuration from r. Relative paths are kept
// as written.
func (l *ConfigLoader) LoadFromReader(r io.Reader) (*RunConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.NewConfigurationError("config", fmt.Errorf("failed to read config: %w", err))
	}
	return l.load(data)
}

// Validate checks a configuration built in code or modified after loading,
// such as by command line overrides.
func (l *ConfigLoader) Validate(cfg *RunConfig) error {
	return l.validateConfig(cfg)
}

func (l *ConfigLoader) load(data []byte) (*RunConfig, error) {
	cfg, err := l.parseYAML(data)
	if err != nil {
		return nil, domain.NewConfigurationError("config", err)
	}
	if err := l.validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) parseYAML(data []byte) (*RunConfig, error) {
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("config is empty")
		}
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &cfg, nil
}

func (l *ConfigLoader) validateConfig(cfg *RunConfig) error {
	if err := l.validator.Struct(cfg); err != nil {
		return domain.NewConfigurationError("config", fmt.Errorf("struct validation failed: %w", err))
	}
	if err := validateSemantics(cfg); err != nil {
		return err
	}
	return nil
}

// validateSemantics checks the rules that span sections.
func validateSemantics(cfg *RunConfig) error {
	if err := cfg.ArenaSettings().Validate(); err != nil {
		return err
	}
	if _, err := cfg.NewParser(); err != nil {
		return err
	}

	verr := domain.NewValidationError("config")
	mode := cfg.ArenaSettings().Mode
	if cfg.Files.BaselineAnswers != "" && mode != arena.ModePairwiseBaseline {
		verr.AddError("files.baseline_answers requires arena.mode pairwise_baseline")
	}
	if mode == arena.ModeSingle && cfg.Arena.Baseline != "" {
		verr.AddError("arena.baseline is not used in single mode")
	}
	paths := cfg.Files.AnswerPaths()
	for i, p := range paths {
		if slices.Contains(paths[:i], p) {
			verr.AddError(fmt.Sprintf("answer file %q is listed twice", p))
		}
		if p == cfg.Files.Output {
			verr.AddError(fmt.Sprintf("output %q is also an answer file", p))
		}
	}
	if mode != arena.ModeSingle && len(paths) < 2 {
		verr.AddError(fmt.Sprintf("mode %s needs at least two answer files, got %d", mode, len(paths)))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// resolve makes relative paths relative to dir.
func (f *FilesConfig) resolve(dir string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i, p := range f.Answers {
		f.Answers[i] = join(p)
	}
	f.BaselineAnswers = join(f.BaselineAnswers)
	f.References = join(f.References)
	f.Prompts = join(f.Prompts)
	f.Cache = join(f.Cache)
	f.Output = join(f.Output)
}

// RegisterRunValidators adds the semver, judgeprovider and parsername tags
// to v.
func RegisterRunValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("judgeprovider", validateJudgeProvider); err != nil {
		return fmt.Errorf("failed to register judgeprovider validator: %w", err)
	}
	if err := v.RegisterValidation("parsername", validateParserName); err != nil {
		return fmt.Errorf("failed to register parsername validator: %w", err)
	}
	return nil
}

// validateSemver accepts X.Y.Z with non-negative integers.
func validateSemver(fl validator.FieldLevel) bool {
	var major, minor, patch int
	var rest string
	n, _ := fmt.Sscanf(fl.Field().String()+" ", "%d.%d.%d%s", &major, &minor, &patch, &rest)
	return n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

func validateJudgeProvider(fl validator.FieldLevel) bool {
	return slices.Contains(predictor.Providers(), fl.Field().String())
}

func validateParserName(fl validator.FieldLevel) bool {
	return slices.Contains(parser.Names(), fl.Field().String())
}
