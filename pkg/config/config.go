// Package config builds component options from declarative configuration blocks,
// the way component hosts configure their components from YAML files.
package config

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/taproot"
	"github.com/aretw0/taproot/pkg/engine"
	"github.com/aretw0/taproot/pkg/session"
)

// Block is the declarative shape of a taproot component configuration.
type Block struct {
	// URL is either a connection string or a mapping of URL components.
	URL any `mapstructure:"url"`

	Engine        Engine  `mapstructure:"engine"`
	Session       Session `mapstructure:"session"`
	CommitWorkers int     `mapstructure:"commit_workers"`
	Pool          string  `mapstructure:"pool"`
	ResourceName  string  `mapstructure:"resource_name"`
}

// Engine carries engine construction arguments.
type Engine struct {
	ConnectParams   map[string]string `mapstructure:"connect_params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration     `mapstructure:"conn_max_idle_time"`
}

// Session carries session construction options. Note that expire_on_commit and
// auto_begin are pinned by the session factory no matter what is configured here.
type Session struct {
	ExpireOnCommit bool   `mapstructure:"expire_on_commit"`
	AutoBegin      bool   `mapstructure:"auto_begin"`
	ReadOnly       bool   `mapstructure:"read_only"`
	Isolation      string `mapstructure:"isolation"`
}

// FromYAML decodes a YAML configuration block into component options.
func FromYAML(data []byte) ([]taproot.Option, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	return FromMap(raw)
}

// FromMap decodes a generic configuration mapping into component options.
func FromMap(raw map[string]any) ([]taproot.Option, error) {
	var block Block
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &block,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("config: decoding block: %w", err)
	}
	return block.Options()
}

// Options translates the block into functional options for taproot.New.
func (b *Block) Options() ([]taproot.Option, error) {
	var opts []taproot.Option

	switch url := b.URL.(type) {
	case nil:
	case string:
		opts = append(opts, taproot.WithURL(url))
	case map[string]any:
		opts = append(opts, taproot.WithURLComponents(url))
	default:
		return nil, fmt.Errorf("config: url must be a string or a mapping, got %T", b.URL)
	}

	opts = append(opts, taproot.WithEngineOptions(engine.Options{
		ConnectParams: b.Engine.ConnectParams,
		Pool: engine.PoolStrategy{
			MaxOpen: b.Engine.MaxOpenConns,
			MaxIdle: b.Engine.MaxIdleConns,
		},
		ConnMaxLifetime: b.Engine.ConnMaxLifetime,
		ConnMaxIdleTime: b.Engine.ConnMaxIdleTime,
	}))

	settings, err := b.Session.settings()
	if err != nil {
		return nil, err
	}
	opts = append(opts, taproot.WithSessionSettings(settings))

	if b.CommitWorkers > 0 {
		opts = append(opts, taproot.WithCommitWorkers(b.CommitWorkers))
	}
	if b.Pool != "" {
		opts = append(opts, taproot.WithPoolStrategy(b.Pool))
	}
	if b.ResourceName != "" {
		opts = append(opts, taproot.WithResourceName(b.ResourceName))
	}
	return opts, nil
}

func (s Session) settings() (session.Settings, error) {
	settings := session.Settings{
		ExpireOnCommit: s.ExpireOnCommit,
		AutoBegin:      s.AutoBegin,
	}
	if !s.ReadOnly && s.Isolation == "" {
		return settings, nil
	}

	txOpts := &sql.TxOptions{ReadOnly: s.ReadOnly}
	switch s.Isolation {
	case "":
	case "read_uncommitted":
		txOpts.Isolation = sql.LevelReadUncommitted
	case "read_committed":
		txOpts.Isolation = sql.LevelReadCommitted
	case "repeatable_read":
		txOpts.Isolation = sql.LevelRepeatableRead
	case "serializable":
		txOpts.Isolation = sql.LevelSerializable
	default:
		return settings, fmt.Errorf("config: unknown isolation level %q", s.Isolation)
	}
	settings.TxOptions = txOpts
	return settings, nil
}
