package templates

import (
	"testing"
)

func TestRender_Substitution(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		variables map[string]interface{}
		expected  string
	}{
		{
			"simple substitution",
			"Hello {{first_name}}!",
			map[string]interface{}{"first_name": "Ana"},
			"Hello Ana!",
		},
		{
			"synonym lookup camelCase",
			"Hello {{first_name}}",
			map[string]interface{}{"userName": "Ana"},
			"Hello Ana",
		},
		{
			"synonym lookup across group",
			"You won {{prize_amount}}!",
			map[string]interface{}{"gift_card_amount": 50},
			"You won 50!",
		},
		{
			"case insensitive placeholder",
			"Hi {{First_Name}}",
			map[string]interface{}{"first_name": "Bo"},
			"Hi Bo",
		},
		{
			"whitespace inside braces",
			"Hi {{ first_name }}",
			map[string]interface{}{"first_name": "Bo"},
			"Hi Bo",
		},
		{
			"unknown placeholder left intact",
			"Hi {{first_name}}, see {{mystery}}",
			map[string]interface{}{"first_name": "Bo"},
			"Hi Bo, see {{mystery}}",
		},
		{
			"nil value renders empty",
			"Code: {{gift_card_code}}",
			map[string]interface{}{"gift_card_code": nil},
			"Code: ",
		},
		{
			"float drops trailing zeros",
			"Prize: ${{prize_amount}}",
			map[string]interface{}{"prize_amount": 25.0},
			"Prize: $25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Render(tt.template, tt.variables)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_ArrayBlock(t *testing.T) {
	template := "{{#winners}}{{rank}}: {{name}} {{/winners}}"
	variables := map[string]interface{}{
		"winners": []map[string]interface{}{
			{"rank": "1st", "name": "Ann"},
			{"rank": "2nd", "name": "Bo"},
		},
	}

	result := Render(template, variables)
	expected := "1st: Ann 2nd: Bo "
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestRender_ArrayElementShadowsParent(t *testing.T) {
	template := "{{name}} beat {{#winners}}{{name}} {{/winners}}"
	variables := map[string]interface{}{
		"name": "You",
		"winners": []map[string]interface{}{
			{"name": "Ann"},
		},
	}

	result := Render(template, variables)
	expected := "You beat Ann "
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestRender_ConditionalBlock(t *testing.T) {
	template := "{{#is_winner}}You won!{{/is_winner}}{{^is_winner}}Better luck next time.{{/is_winner}}"

	tests := []struct {
		name     string
		isWinner interface{}
		expected string
	}{
		{"true shows positive branch", true, "You won!"},
		{"false shows negative branch", false, "Better luck next time."},
		{"missing variable shows negative branch", nil, "Better luck next time."},
		{"empty string is falsy", "", "Better luck next time."},
		{"non-empty string is truthy", "yes", "You won!"},
		{"zero is falsy", 0, "Better luck next time."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variables := map[string]interface{}{}
			if tt.isWinner != nil {
				variables["is_winner"] = tt.isWinner
			}
			result := Render(template, variables)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_EmptyArrayHidesBlock(t *testing.T) {
	template := "Results:{{#winners}} {{name}}{{/winners}} done"
	result := Render(template, map[string]interface{}{"winners": []map[string]interface{}{}})
	expected := "Results: done"
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestRender_BlockVariablesSubstituted(t *testing.T) {
	template := "{{#has_submissions}}You made {{submission_count}} entries.{{/has_submissions}}"
	result := Render(template, map[string]interface{}{
		"has_submissions":  true,
		"submission_count": 4,
	})
	expected := "You made 4 entries."
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestRender_Deterministic(t *testing.T) {
	template := "Hi {{first_name}}, {{#winners}}{{name}} {{/winners}}{{^is_winner}}maybe next time{{/is_winner}}"
	variables := map[string]interface{}{
		"first_name": "Ana",
		"winners": []map[string]interface{}{
			{"name": "Bo"},
			{"name": "Cy"},
		},
		"is_winner": false,
	}

	first := Render(template, variables)
	for i := 0; i < 20; i++ {
		if got := Render(template, variables); got != first {
			t.Fatalf("Render not deterministic: %q vs %q", first, got)
		}
	}
}
