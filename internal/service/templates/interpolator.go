// Package templates implements the email template mini-language: {{key}}
// substitution with synonym-normalized lookup, {{#name}}...{{/name}}
// blocks that iterate arrays or gate on truthiness, and {{^name}} blocks
// that render on falsiness. Rendering is pure: the same template and
// variables always produce the same output.
package templates

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// synonymGroups unions equivalent template keys so a variable supplied
// under any member satisfies lookups under every other member.
var synonymGroups = [][]string{
	{"first_name", "name", "user_name", "username"},
	{"contest_title", "challenge_title", "title"},
	{"contest_url", "challenge_url"},
	{"prize_amount", "reward_amount", "gift_card_amount"},
	{"unsubscribe_url", "unsubscribe_link"},
	{"dashboard_url", "dashboard_link"},
	{"gift_card_code", "code"},
	{"redeem_url", "redeem_link", "gift_card_url"},
	{"rank", "position", "placement"},
}

var (
	openBlockRe     = regexp.MustCompile(`\{\{#\s*(\w+)\s*\}\}`)
	negativeBlockRe = regexp.MustCompile(`\{\{\^\s*(\w+)\s*\}\}`)
)

// Render interpolates variables into a template. Unknown placeholders
// are left as-is; supplied-but-nil variables render as empty strings.
func Render(template string, variables map[string]interface{}) string {
	return render(template, expand(variables))
}

func render(template string, lookup map[string]interface{}) string {
	out := renderBlocks(template, lookup)
	out = substitute(out, lookup)
	out = renderNegativeBlocks(out, lookup)
	return out
}

// renderBlocks resolves {{#name}}...{{/name}} blocks. An array-valued
// name repeats the block per element with the element's own fields in
// scope; any other value gates the block on truthiness.
func renderBlocks(template string, lookup map[string]interface{}) string {
	names := blockNames(openBlockRe, template)
	for _, name := range names {
		blockRe := regexp.MustCompile(`(?s)\{\{#\s*` + name + `\s*\}\}(.*?)\{\{/\s*` + name + `\s*\}\}`)
		value, _ := resolve(lookup, name)

		template = blockRe.ReplaceAllStringFunc(template, func(match string) string {
			content := blockRe.FindStringSubmatch(match)[1]

			if elements, ok := asSlice(value); ok {
				var sb strings.Builder
				for _, element := range elements {
					sb.WriteString(render(content, mergeElement(lookup, element)))
				}
				return sb.String()
			}

			if truthy(value) {
				return render(content, lookup)
			}
			return ""
		})
	}
	return template
}

// renderNegativeBlocks resolves {{^name}}...{{/name}} blocks, which
// render only when the named variable is falsy.
func renderNegativeBlocks(template string, lookup map[string]interface{}) string {
	names := blockNames(negativeBlockRe, template)
	for _, name := range names {
		blockRe := regexp.MustCompile(`(?s)\{\{\^\s*` + name + `\s*\}\}(.*?)\{\{/\s*` + name + `\s*\}\}`)
		value, _ := resolve(lookup, name)

		template = blockRe.ReplaceAllStringFunc(template, func(match string) string {
			content := blockRe.FindStringSubmatch(match)[1]
			if truthy(value) {
				return ""
			}
			return render(content, lookup)
		})
	}
	return template
}

// substitute replaces every {{key}} placeholder whose key resolves to a
// supplied variable. Matching is case-insensitive and tolerant of
// whitespace inside the braces.
func substitute(template string, lookup map[string]interface{}) string {
	for key, value := range lookup {
		re := regexp.MustCompile(`(?i)\{\{\s*` + regexp.QuoteMeta(key) + `\s*\}\}`)
		template = re.ReplaceAllLiteralString(template, stringify(value))
	}
	return template
}

// blockNames returns the distinct block names opened in the template, in
// first-appearance order.
func blockNames(re *regexp.Regexp, template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range re.FindAllStringSubmatch(template, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// expand builds the normalized lookup table: every variable is
// registered under its lowercase, snake_case and camelCase spellings,
// and synonym groups are unioned so any member's value serves them all.
func expand(variables map[string]interface{}) map[string]interface{} {
	lookup := make(map[string]interface{}, len(variables)*2)

	register := func(key string, value interface{}, overwrite bool) {
		key = strings.ToLower(key)
		if key == "" {
			return
		}
		if _, exists := lookup[key]; exists && !overwrite {
			return
		}
		lookup[key] = value
	}

	for key, value := range variables {
		register(key, value, true)
		register(toSnake(key), value, true)
		register(toCamel(key), value, true)
	}

	// Union synonym groups: the first member already present supplies
	// the value for every other member.
	for _, group := range synonymGroups {
		var value interface{}
		found := false
		for _, member := range group {
			if v, ok := lookup[member]; ok {
				value = v
				found = true
				break
			}
		}
		if !found {
			continue
		}
		for _, member := range group {
			register(member, value, false)
		}
	}

	return lookup
}

// resolve looks a template key up in the expanded table, trying the
// lowercase spelling and then its snake_case form.
func resolve(lookup map[string]interface{}, key string) (interface{}, bool) {
	lower := strings.ToLower(key)
	if v, ok := lookup[lower]; ok {
		return v, true
	}
	if v, ok := lookup[toSnake(key)]; ok {
		return v, true
	}
	return nil, false
}

// mergeElement layers a loop element's fields over the parent scope.
func mergeElement(parent map[string]interface{}, element interface{}) map[string]interface{} {
	fields := asMap(element)
	if len(fields) == 0 {
		return parent
	}

	merged := make(map[string]interface{}, len(parent)+len(fields)*2)
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range expand(fields) {
		merged[k] = v
	}
	return merged
}

// asSlice reports whether the value is list-like and returns its
// elements.
func asSlice(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	elements := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elements[i] = rv.Index(i).Interface()
	}
	return elements, true
}

// asMap converts a map-like value into map[string]interface{}.
func asMap(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil
	}
	fields := make(map[string]interface{}, rv.Len())
	for _, key := range rv.MapKeys() {
		fields[fmt.Sprintf("%v", key.Interface())] = rv.MapIndex(key).Interface()
	}
	return fields
}

// truthy mirrors the loose truthiness templates expect: nil, false,
// zero, empty string and empty collections are falsy.
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// stringify renders a variable value for substitution. Nil renders as
// an empty string; floats drop trailing zeros.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toSnake converts a camelCase key to snake_case.
func toSnake(key string) string {
	var sb strings.Builder
	for i, r := range key {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && key[i-1] != '_' {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}

// toCamel converts a snake_case key to camelCase (lowercased afterwards
// for the case-insensitive table, which still distinguishes it from the
// snake form by the missing underscores).
func toCamel(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) == 1 {
		return strings.ToLower(key)
	}
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part)
	}
	return strings.ToLower(sb.String())
}
