package netident

import (
	"fmt"
	"reflect"
)

func (c *config) validate() error {
	if c.cdnLoopToken == "" {
		return fmt.Errorf("CDN-Loop token cannot be empty")
	}
	if c.maxChainLength <= 0 {
		return fmt.Errorf("maxChainLength must be > 0, got %d", c.maxChainLength)
	}
	if len(c.localProxyPrefixes) == 0 {
		return fmt.Errorf("at least one local proxy prefix required")
	}
	if isNilInterface(c.logger) {
		return fmt.Errorf("logger cannot be nil")
	}
	if c.metricsFactory == nil && isNilInterface(c.metrics) {
		return fmt.Errorf("metrics cannot be nil")
	}
	return nil
}

func isNilInterface(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
