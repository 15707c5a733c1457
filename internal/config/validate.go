package config

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/joebot/relaybot/internal/logging"
)

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validate() []string {
	var errs []string

	// backend
	b := c.Backend
	if b.BaseURL == "" {
		errs = append(errs, "backend.baseUrl is required")
	} else if u, err := url.Parse(b.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "backend.baseUrl must be an http(s) URL")
	}
	if b.Version == "" {
		errs = append(errs, "backend.version is required")
	}
	if b.TimeoutSeconds < 0 {
		errs = append(errs, "backend.timeoutSeconds must be non-negative")
	}

	// channels
	wa := c.Channels.WhatsApp
	if wa.Enabled {
		if u, err := url.Parse(wa.BridgeURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, "channels.whatsapp.bridgeUrl must be a ws(s) URL when whatsapp is enabled")
		}
	}
	if wa.SendsPerSecond < 0 {
		errs = append(errs, "channels.whatsapp.sendsPerSecond must be non-negative")
	}
	dc := c.Channels.Discord
	if dc.Enabled && dc.Token == "" {
		errs = append(errs, "channels.discord.token is required when discord is enabled")
	}

	// relay
	r := c.Relay
	if r.IdleTimeoutSeconds < 0 {
		errs = append(errs, "relay.idleTimeoutSeconds must be non-negative")
	}
	if r.MaxInFlight < 0 {
		errs = append(errs, "relay.maxInFlight must be non-negative")
	}
	cmds := map[string]string{}
	for field, cmd := range map[string]string{
		"takeoverCommand": r.TakeoverCommand,
		"releaseCommand":  r.ReleaseCommand,
		"resetCommand":    r.ResetCommand,
	} {
		if cmd == "" {
			continue
		}
		key := strings.ToLower(cmd)
		if other, dup := cmds[key]; dup {
			errs = append(errs, fmt.Sprintf("relay.%s duplicates relay.%s", field, other))
		}
		cmds[key] = field
	}

	// logging
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, "logging.level: "+err.Error())
	}

	// services.heartbeat
	hb := c.Services.Heartbeat
	if hb.Enabled && hb.IntervalS <= 0 {
		errs = append(errs, "services.heartbeat.intervalSeconds must be positive when enabled")
	}

	sort.Strings(errs)
	return errs
}

// CheckUnknownFields walks the raw config map and returns paths of any keys
// that do not correspond to known Config struct fields.
func CheckUnknownFields(raw map[string]any) []string {
	result := checkUnknownFields(raw, reflect.TypeOf(Config{}), "")
	sort.Strings(result)
	return result
}

func checkUnknownFields(data map[string]any, t reflect.Type, prefix string) []string {
	t = derefType(t)

	switch t.Kind() {
	case reflect.Map:
		// Map keys are user-defined; check values only.
		elemType := derefType(t.Elem())
		if elemType.Kind() != reflect.Struct {
			return nil
		}
		var unknown []string
		for key, val := range data {
			if nested, ok := val.(map[string]any); ok {
				unknown = append(unknown, checkUnknownFields(nested, elemType, joinPath(prefix, key))...)
			}
		}
		return unknown

	case reflect.Struct:
		known := jsonFieldMap(t)
		var unknown []string
		for key, val := range data {
			ft, ok := known[key]
			if !ok {
				unknown = append(unknown, joinPath(prefix, key))
				continue
			}
			if nested, ok := val.(map[string]any); ok {
				unknown = append(unknown, checkUnknownFields(nested, ft, joinPath(prefix, key))...)
			}
		}
		return unknown

	default:
		return nil
	}
}

func jsonFieldMap(t reflect.Type) map[string]reflect.Type {
	m := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name != "" {
			m[name] = f.Type
		}
	}
	return m
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
