// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package aws

import (
	"context"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type options struct {
	profile     string
	region      string
	maxAttempts int
}

// Option overrides one piece of the AWS config chain.  With no options,
// LoadAWSConfig inherits whatever the shell provides (AWS_PROFILE,
// ~/.aws/config, env vars, IMDS).
type Option func(*options)

// WithProfile selects a shared config profile.  Empty means the SDK's
// normal profile resolution.
func WithProfile(profile string) Option {
	return func(o *options) {
		if profile != "" {
			o.profile = profile
		}
	}
}

// WithRegion overrides the region.  Empty means the SDK's normal
// region resolution.
func WithRegion(region string) Option {
	return func(o *options) {
		if region != "" {
			o.region = region
		}
	}
}

// WithMaxAttempts caps the standard retryer's attempt count.  Zero or
// negative leaves the SDK default in place.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// LoadAWSConfig resolves an SDK v2 config with varctl's overrides
// applied on top of the default chain.
func LoadAWSConfig(ctx context.Context, opts ...Option) (awsv2.Config, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(o.profile))
	}
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	if o.maxAttempts > 0 {
		loadOpts = append(loadOpts, config.WithRetryer(func() awsv2.Retryer {
			return retry.NewStandard(func(so *retry.StandardOptions) {
				so.MaxAttempts = o.maxAttempts
			})
		}))
	}

	return config.LoadDefaultConfig(ctx, loadOpts...)
}

// NewS3 constructs an S3 client from the resolved config.
func NewS3(cfg awsv2.Config) *s3v2.Client {
	return s3v2.NewFromConfig(cfg)
}
