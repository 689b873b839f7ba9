package state

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"sniprx/internal/pkg/errs"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed settings.schema.json
var settingsSchemaRaw []byte

const settingsSchemaURL = "settings.schema.json"

var (
	settingsSchemaOnce sync.Once
	settingsSchema     *jsonschema.Schema
	settingsSchemaErr  error
)

func compiledSettingsSchema() (*jsonschema.Schema, error) {
	settingsSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(settingsSchemaURL, bytes.NewReader(settingsSchemaRaw)); err != nil {
			settingsSchemaErr = err
			return
		}
		settingsSchema, settingsSchemaErr = compiler.Compile(settingsSchemaURL)
	})
	return settingsSchema, settingsSchemaErr
}

// ValidateSettingsPatch 校验浅合并请求体：只允许已知顶层字段，且类型正确。
func ValidateSettingsPatch(partial map[string]any) error {
	schema, err := compiledSettingsSchema()
	if err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}
	if partial == nil {
		partial = map[string]any{}
	}
	if err := schema.Validate(partial); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := deepestCause(ve)
			field := strings.TrimPrefix(strings.ReplaceAll(leaf.InstanceLocation, "/", "."), ".")
			if field == "" {
				field = "settings"
			}
			return errs.Invalid(field, leaf.Message)
		}
		return errs.Invalid("settings", err.Error())
	}
	return nil
}

func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

func decodeSettingsPatch(partial map[string]any) (BotSettings, error) {
	var patch BotSettings
	if err := ValidateSettingsPatch(partial); err != nil {
		return patch, err
	}
	if len(partial) == 0 {
		return patch, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &patch,
		ErrorUnused: true,
	})
	if err != nil {
		return patch, err
	}
	if err := dec.Decode(partial); err != nil {
		return patch, errs.Invalid("settings", err.Error())
	}
	return patch, nil
}

// applyShallow 把 patch 中出现在 keys 里的顶层字段整体拷贝到 dst。
func applyShallow(dst *BotSettings, patch BotSettings, keys map[string]any) {
	if len(keys) == 0 {
		return
	}
	patch = cloneSettings(patch)
	dv := reflect.ValueOf(dst).Elem()
	pv := reflect.ValueOf(patch)
	typ := dv.Type()
	for i := 0; i < typ.NumField(); i++ {
		name := settingsKey(typ.Field(i))
		if _, ok := keys[name]; !ok {
			continue
		}
		dv.Field(i).Set(pv.Field(i))
	}
}

func settingsKey(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name
	}
	return tag
}
