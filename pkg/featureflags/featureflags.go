package featureflags

import (
	"context"
	"errors"

	"stakemine/pkg/config"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

var ErrNotConfigured = errors.New("featureflags: no client configured")

type FeatureFlag interface {
	// Enabled reports whether the named flag is on. ok is false when no
	// flagsmith client is configured or the lookup failed; callers fall
	// back to their local default in that case.
	Enabled(ctx context.Context, name string) (enabled bool, ok bool)
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithBaseURL(p.Config.Flagsmith.Addr),
		flagsmith.WithAnalytics(),
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) Enabled(ctx context.Context, name string) (bool, bool) {
	if s.client == nil {
		return false, false
	}

	flags, err := s.client.GetEnvironmentFlags()
	if err != nil {
		return false, false
	}

	enabled, err := flags.IsFeatureEnabled(name)
	if err != nil {
		return false, false
	}

	return enabled, true
}
