package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/hsearch/codec"
	"github.com/hupe1980/hsearch/convert"
	"github.com/hupe1980/hsearch/types"
)

func buildModel(cfg *Config) (*types.IndexModel, error) {
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("config: index %s declares no fields", cfg.Index)
	}

	m := types.NewIndexModel(cfg.Index)
	for _, f := range cfg.Fields {
		opts, err := codecOptions(f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Path, err)
		}
		t, err := types.ByName(f.Type, opts...)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Path, err)
		}
		if err := m.AddField(f.Path, t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func codecOptions(f FieldConfig) ([]codec.Option, error) {
	var opts []codec.Option
	if f.NoIndex {
		opts = append(opts, codec.WithIndexing(codec.IndexingDisabled))
	}
	if f.DocValues {
		opts = append(opts, codec.WithDocValues(codec.DocValuesEnabled))
	}
	if f.Stored {
		opts = append(opts, codec.WithStorage(codec.StorageEnabled))
	}
	switch strings.ToLower(f.Normalizer) {
	case "":
	case codec.LowercaseNormalizer.Name:
		opts = append(opts, codec.WithNormalizer(codec.LowercaseNormalizer))
	case codec.TrimNormalizer.Name:
		opts = append(opts, codec.WithNormalizer(codec.TrimNormalizer))
	default:
		return nil, fmt.Errorf("unknown normalizer %q", f.Normalizer)
	}
	if f.IndexNullAs != "" {
		v, err := nullValue(f.Type, f.IndexNullAs)
		if err != nil {
			return nil, err
		}
		opts = append(opts, codec.WithIndexNullAs(v))
	}
	return opts, nil
}

// nullValue converts the configured replacement to the field's value type.
func nullValue(kind, raw string) (any, error) {
	switch strings.ToLower(kind) {
	case codec.KindInteger.String():
		return convert.Lenient[int32]{}.Convert(raw)
	case codec.KindLong.String():
		return convert.Lenient[int64]{}.Convert(raw)
	case codec.KindDouble.String():
		return convert.Lenient[float64]{}.Convert(raw)
	case codec.KindBoolean.String():
		return convert.Lenient[bool]{}.Convert(raw)
	case codec.KindYear.String():
		return convert.Lenient[int]{}.Convert(raw)
	case codec.KindInstant.String():
		return convert.Lenient[time.Time]{}.Convert(raw)
	default:
		return raw, nil
	}
}
