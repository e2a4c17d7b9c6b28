package cipher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func hexToBase64Recipe(name string) *Recipe {
	return &Recipe{
		Name:        name,
		Description: "Convert hex to base64",
		Tags:        []string{"hex", "base64"},
		Pipeline: Pipeline{
			Operations: []OperationConfig{
				{Name: "hex_decode"},
				{Name: "base64_encode"},
			},
			Reversible: true,
		},
	}
}

func TestRecipeManagerSaveAndGet(t *testing.T) {
	rm := NewRecipeManager("")

	recipe := hexToBase64Recipe("hex2b64")
	if err := rm.SaveRecipe(recipe); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	retrieved, exists := rm.GetRecipe("hex2b64")
	if !exists {
		t.Fatal("recipe should exist")
	}
	if retrieved.CreatedAt == "" || retrieved.UpdatedAt == "" {
		t.Error("expected timestamps to be set")
	}

	out, err := retrieved.Pipeline.Execute(context.Background(), []byte("4d616e"))
	if err != nil {
		t.Fatalf("recipe pipeline failed: %v", err)
	}
	if string(out) != "TWFu" {
		t.Errorf("expected %q, got %q", "TWFu", out)
	}
}

func TestRecipeManagerKeepsCreatedAt(t *testing.T) {
	rm := NewRecipeManager("")

	first := hexToBase64Recipe("stamped")
	first.CreatedAt = "2020-01-01T00:00:00Z"
	rm.SaveRecipe(first)

	if err := rm.SaveRecipe(hexToBase64Recipe("stamped")); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	got, _ := rm.GetRecipe("stamped")
	if got.CreatedAt != "2020-01-01T00:00:00Z" {
		t.Errorf("expected creation time to survive update, got %q", got.CreatedAt)
	}
}

func TestRecipeManagerDelete(t *testing.T) {
	rm := NewRecipeManager("")
	rm.SaveRecipe(hexToBase64Recipe("to-delete"))

	if err := rm.DeleteRecipe("to-delete"); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}

	if _, exists := rm.GetRecipe("to-delete"); exists {
		t.Error("recipe should not exist after deletion")
	}
}

func TestRecipeManagerPersistence(t *testing.T) {
	tempDir := t.TempDir()
	rm := NewRecipeManager(tempDir)

	recipe := &Recipe{
		Name:        "persistent-recipe",
		Description: "Should persist to disk",
		Tags:        []string{"persistent"},
		Pipeline: Pipeline{
			Operations: []OperationConfig{
				{Name: "single_byte_xor", Parameters: map[string]interface{}{"key": 88}},
				{Name: "hex_encode"},
			},
			Reversible: true,
		},
	}

	if err := rm.SaveRecipe(recipe); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tempDir, "persistent-recipe.yaml"))
	if err != nil {
		t.Fatalf("recipe file not written: %v", err)
	}
	if !strings.Contains(string(data), "single_byte_xor") {
		t.Errorf("expected operation name in YAML, got:\n%s", data)
	}

	rm2 := NewRecipeManager(tempDir)
	if err := rm2.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes failed: %v", err)
	}

	retrieved, exists := rm2.GetRecipe("persistent-recipe")
	if !exists {
		t.Fatal("recipe should exist after loading from disk")
	}
	if retrieved.Description != recipe.Description {
		t.Errorf("expected description %q, got %q", recipe.Description, retrieved.Description)
	}
	if len(retrieved.Pipeline.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(retrieved.Pipeline.Operations))
	}

	// Parameters decoded from YAML must still drive the operation.
	out, err := retrieved.Pipeline.Execute(context.Background(), []byte{0x1b, 0x37})
	if err != nil {
		t.Fatalf("loaded pipeline failed: %v", err)
	}
	if string(out) != "436f" {
		t.Errorf("expected %q, got %q", "436f", out)
	}
}

func TestRecipeManagerSearch(t *testing.T) {
	rm := NewRecipeManager("")

	recipes := []*Recipe{
		{
			Name:        "hex-decoder",
			Description: "Decodes hex payloads",
			Tags:        []string{"hex", "decode"},
			Pipeline:    Pipeline{Operations: []OperationConfig{{Name: "hex_decode"}}},
		},
		{
			Name:        "base64-chain",
			Description: "Double base64 encoding",
			Tags:        []string{"base64", "encoding"},
			Pipeline:    Pipeline{Operations: []OperationConfig{{Name: "base64_encode"}}},
		},
		{
			Name:        "hex-encoder",
			Description: "Encodes bytes",
			Tags:        []string{"hex", "encode"},
			Pipeline:    Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}},
		},
	}

	for _, recipe := range recipes {
		rm.SaveRecipe(recipe)
	}

	if results := rm.SearchRecipes("hex"); len(results) != 2 {
		t.Errorf("expected 2 hex recipes, got %d", len(results))
	}
	if results := rm.SearchRecipes("decoder"); len(results) != 1 {
		t.Errorf("expected 1 decoder recipe, got %d", len(results))
	}
	if results := rm.SearchRecipes("double"); len(results) != 1 {
		t.Errorf("expected 1 recipe with 'double' in description, got %d", len(results))
	}
}

func TestRecipeManagerRejectsInvalid(t *testing.T) {
	rm := NewRecipeManager("")

	if err := rm.SaveRecipe(&Recipe{Name: "", Pipeline: Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}}}); err == nil {
		t.Error("expected error when saving recipe with empty name")
	}
	if err := rm.SaveRecipe(&Recipe{Name: "empty"}); err == nil {
		t.Error("expected error when saving recipe without operations")
	}
	if err := rm.SaveRecipe(nil); err == nil {
		t.Error("expected error when saving nil recipe")
	}
}

func TestRecipeManagerDeletePersistent(t *testing.T) {
	tempDir := t.TempDir()
	rm := NewRecipeManager(tempDir)

	rm.SaveRecipe(hexToBase64Recipe("to-delete-from-disk"))

	recipePath := filepath.Join(tempDir, "to-delete-from-disk.yaml")
	if _, err := os.Stat(recipePath); err != nil {
		t.Fatalf("recipe file should exist: %v", err)
	}

	if err := rm.DeleteRecipe("to-delete-from-disk"); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}

	if _, err := os.Stat(recipePath); !errors.Is(err, os.ErrNotExist) {
		t.Error("recipe file should be deleted")
	}

	if err := rm.DeleteRecipe("never-existed"); err != nil {
		t.Errorf("deleting a missing recipe should succeed, got %v", err)
	}
}

func TestRecipeManagerLoadMultipleRecipes(t *testing.T) {
	tempDir := t.TempDir()
	rm := NewRecipeManager(tempDir)

	names := []string{"recipe-gamma", "recipe-alpha", "recipe-beta"}
	for _, name := range names {
		if err := rm.SaveRecipe(hexToBase64Recipe(name)); err != nil {
			t.Fatalf("SaveRecipe failed: %v", err)
		}
	}
	// Files without the recipe extension are ignored.
	os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("not a recipe"), 0o644)

	rm2 := NewRecipeManager(tempDir)
	if err := rm2.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes failed: %v", err)
	}

	all := rm2.ListRecipes()
	if len(all) != 3 {
		t.Fatalf("expected 3 recipes, got %d", len(all))
	}
	for i, want := range []string{"recipe-alpha", "recipe-beta", "recipe-gamma"} {
		if all[i].Name != want {
			t.Errorf("position %d: expected %q, got %q", i, want, all[i].Name)
		}
	}
	if all[0] == all[1] {
		t.Error("loaded recipes should be distinct objects")
	}
}

func TestRecipeManagerLoadRejectsNameless(t *testing.T) {
	tempDir := t.TempDir()
	os.WriteFile(filepath.Join(tempDir, "broken.yaml"), []byte("description: no name\n"), 0o644)

	if err := NewRecipeManager(tempDir).LoadRecipes(); err == nil {
		t.Fatal("expected error for recipe without a name")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple-name", "simple-name"},
		{"name with spaces", "name_with_spaces"},
		{"special!@#$%chars", "specialchars"},
		{"CamelCase123", "CamelCase123"},
		{"", "recipe"},
		{"!!!!", "recipe"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := sanitizeFilename(tt.input); result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRecipeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple-name", "simple-name.yaml"},
		{"my_recipe", "my_recipe.yaml"},
		{"my recipe", "my_recipe.6d7920726563697065.yaml"},
		{"a/b", "ab.612f62.yaml"},
		{"recipe", "recipe.yaml"},
		{"!", "recipe.21.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := recipeFilename(tt.input); result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRecipeManagerSimilarNamesKeepSeparateFiles(t *testing.T) {
	tempDir := t.TempDir()
	rm := NewRecipeManager(tempDir)

	names := []string{"my recipe", "my_recipe", "a/b", "ab"}
	for _, name := range names {
		if err := rm.SaveRecipe(hexToBase64Recipe(name)); err != nil {
			t.Fatalf("SaveRecipe(%q) failed: %v", name, err)
		}
	}
	if err := rm.DeleteRecipe("my_recipe"); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}
	if err := rm.DeleteRecipe("ab"); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}

	reloaded := NewRecipeManager(tempDir)
	if err := reloaded.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes failed: %v", err)
	}
	all := reloaded.ListRecipes()
	if len(all) != 2 {
		t.Fatalf("expected 2 recipes after deleting their look-alikes, got %d", len(all))
	}
	for _, name := range []string{"my recipe", "a/b"} {
		if _, ok := reloaded.GetRecipe(name); !ok {
			t.Errorf("recipe %q should survive deleting a similarly named recipe", name)
		}
	}
}
