package state

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed_default.yaml
var defaultSeedRaw []byte

// Seed 是 Store 启动时的初始快照。
type Seed struct {
	Accounts []Account  `yaml:"accounts"`
	Trades   TradeBook   `yaml:"trades"`
	Settings BotSettings `yaml:"settings"`
	Running  bool        `yaml:"running"`
}

// DefaultSeed 返回内置的开发用快照。
func DefaultSeed() (Seed, error) {
	return ParseSeed(defaultSeedRaw)
}

// LoadSeed 从 YAML 文件读取快照；path 为空时使用内置快照。
func LoadSeed(path string) (Seed, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultSeed()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed failed: %w", err)
	}
	seed, err := ParseSeed(raw)
	if err != nil {
		return Seed{}, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// ParseSeed 严格解析 YAML（未知字段报错）。
func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("parse seed failed: %w", err)
	}
	for i, t := range seed.Trades.Open {
		if side := NormalizeSide(t.Type); side != "" {
			seed.Trades.Open[i].Type = side
		}
	}
	for i, t := range seed.Trades.Closed {
		if side := NormalizeSide(t.Type); side != "" {
			seed.Trades.Closed[i].Type = side
		}
	}
	return seed, nil
}
