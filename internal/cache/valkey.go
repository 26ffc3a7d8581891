package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valkey-io/valkey-go"

	"github.com/fshasan/feedback-pulse/internal/models"
)

const seenTTL = 7 * 24 * time.Hour

// ValkeyCache implements AnalysisCache and SeenSet on a Valkey (or Redis) server
type ValkeyCache struct {
	client valkey.Client
	ttl    time.Duration
}

var (
	_ AnalysisCache = (*ValkeyCache)(nil)
	_ SeenSet       = (*ValkeyCache)(nil)
)

// NewValkeyCache connects and pings the server
func NewValkeyCache(ctx context.Context, address, password string, useTLS bool, ttl time.Duration) (*ValkeyCache, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{address},
		Password:         password,
		ConnWriteTimeout: 5 * time.Second,
	}
	if useTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey at %s: %w", address, err)
	}

	logrus.Infof("Connected to cache at %s", address)
	return &ValkeyCache{client: client, ttl: ttl}, nil
}

func (c *ValkeyCache) GetAnalysis(ctx context.Context, key string) (*models.Analysis, bool, error) {
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached analysis: %w", err)
	}

	var analysis models.Analysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		logrus.Warnf("Discarding unreadable cache entry %s: %v", key, err)
		return nil, false, nil
	}
	return &analysis, true, nil
}

func (c *ValkeyCache) SetAnalysis(ctx context.Context, key string, analysis models.Analysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	var cmd valkey.Completed
	if c.ttl > 0 {
		cmd = c.client.B().Set().Key(key).Value(valkey.BinaryString(data)).ExSeconds(int64(c.ttl.Seconds())).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(valkey.BinaryString(data)).Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

func (c *ValkeyCache) IsSeen(ctx context.Context, source, id string) (bool, error) {
	seen, err := c.client.Do(ctx, c.client.B().Sismember().Key(seenKey(source)).Member(id).Build()).AsBool()
	if err != nil {
		return false, fmt.Errorf("failed to check seen set: %w", err)
	}
	return seen, nil
}

func (c *ValkeyCache) MarkSeen(ctx context.Context, source, id string) error {
	key := seenKey(source)
	for _, resp := range c.client.DoMulti(ctx,
		c.client.B().Sadd().Key(key).Member(id).Build(),
		c.client.B().Expire().Key(key).Seconds(int64(seenTTL.Seconds())).Build(),
	) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to mark %s item %s as seen: %w", source, id, err)
		}
	}
	return nil
}

func (c *ValkeyCache) Close() {
	c.client.Close()
}

func seenKey(source string) string {
	return "seen:" + source
}
