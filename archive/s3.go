/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Factory builds S3Archivers that all share one bucket/credential
// configuration but write under distinct per-name prefixes.
type S3Factory struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
}

func (f *S3Factory) CreateArchiver(name string) Archiver {
	pfx := strings.TrimSuffix(f.Prefix, "/")
	if pfx != "" {
		pfx = pfx + "/" + name
	} else {
		pfx = name
	}
	return &S3Archiver{factory: f, prefix: pfx}
}

// S3Archiver writes one JSON object per archived partition, keyed by
// shard/strategy/finePartition so a later audit can list a prefix and
// find every partition ever swept out of a given shard.
type S3Archiver struct {
	factory *S3Factory
	prefix  string

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

func (a *S3Archiver) ensureOpen(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opened {
		return nil
	}

	var opts []func(*config.LoadOptions) error
	if a.factory.Region != "" {
		opts = append(opts, config.WithRegion(a.factory.Region))
	}
	if a.factory.AccessKeyID != "" && a.factory.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.factory.AccessKeyID, a.factory.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("archive: s3: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if a.factory.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(a.factory.Endpoint) })
	}
	if a.factory.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	a.client = s3.NewFromConfig(cfg, s3Opts...)
	a.opened = true
	return nil
}

func (a *S3Archiver) key(snap Snapshot) string {
	return fmt.Sprintf("%s/shard-%d/%s/partition-%d.json", a.prefix, snap.Shard, snap.Strategy, snap.FinePartition)
}

func (a *S3Archiver) Archive(ctx context.Context, snap Snapshot) error {
	if err := a.ensureOpen(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("archive: s3: marshal snapshot: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.factory.Bucket),
		Key:    aws.String(a.key(snap)),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("archive: s3: put object: %w", err)
	}
	return nil
}

func init() {
	BackendRegistry["s3"] = func(settings map[string]string) (Factory, error) {
		f := &S3Factory{
			AccessKeyID:     settings["access_key_id"],
			SecretAccessKey: settings["secret_access_key"],
			Region:          settings["region"],
			Endpoint:        settings["endpoint"],
			Bucket:          settings["bucket"],
			Prefix:          settings["prefix"],
		}
		if f.Bucket == "" {
			return nil, fmt.Errorf("archive: s3: missing required setting %q", "bucket")
		}
		return f, nil
	}
}
