package cipher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const recipeExt = ".yaml"

// RecipeManager keeps recipes in memory and, when a store path is set,
// mirrors each one to a YAML file in that directory.
type RecipeManager struct {
	recipes   map[string]*Recipe
	storePath string
	mu        sync.RWMutex
}

// NewRecipeManager creates a recipe manager. An empty storePath keeps recipes
// in memory only.
func NewRecipeManager(storePath string) *RecipeManager {
	return &RecipeManager{
		recipes:   make(map[string]*Recipe),
		storePath: storePath,
	}
}

// SaveRecipe stores a recipe, stamping its creation and update times
func (rm *RecipeManager) SaveRecipe(recipe *Recipe) error {
	if recipe == nil || strings.TrimSpace(recipe.Name) == "" {
		return errors.New("recipe name cannot be empty")
	}
	if len(recipe.Pipeline.Operations) == 0 {
		return fmt.Errorf("recipe %s has no operations", recipe.Name)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	if existing, ok := rm.recipes[recipe.Name]; ok && recipe.CreatedAt == "" {
		recipe.CreatedAt = existing.CreatedAt
	}
	if recipe.CreatedAt == "" {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now

	if rm.storePath != "" {
		if err := rm.persistRecipe(recipe); err != nil {
			return err
		}
	}

	rm.recipes[recipe.Name] = recipe
	return nil
}

// GetRecipe retrieves a recipe by name
func (rm *RecipeManager) GetRecipe(name string) (*Recipe, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipe, exists := rm.recipes[name]
	return recipe, exists
}

// ListRecipes returns all recipes sorted by name
func (rm *RecipeManager) ListRecipes() []*Recipe {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipes := make([]*Recipe, 0, len(rm.recipes))
	for _, recipe := range rm.recipes {
		recipes = append(recipes, recipe)
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].Name < recipes[j].Name })

	return recipes
}

// DeleteRecipe removes a recipe and its file
func (rm *RecipeManager) DeleteRecipe(name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	delete(rm.recipes, name)

	if rm.storePath != "" {
		recipePath := filepath.Join(rm.storePath, recipeFilename(name))
		if err := os.Remove(recipePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete recipe file: %w", err)
		}
	}

	return nil
}

// LoadRecipes reads every recipe file from the store path
func (rm *RecipeManager) LoadRecipes() error {
	if rm.storePath == "" {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}

	entries, err := os.ReadDir(rm.storePath)
	if err != nil {
		return fmt.Errorf("failed to read recipes directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recipeExt {
			continue
		}

		data, err := os.ReadFile(filepath.Join(rm.storePath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read recipe %s: %w", entry.Name(), err)
		}

		var recipe Recipe
		if err := yaml.Unmarshal(data, &recipe); err != nil {
			return fmt.Errorf("failed to parse recipe %s: %w", entry.Name(), err)
		}
		if recipe.Name == "" {
			return fmt.Errorf("recipe %s has no name", entry.Name())
		}

		rm.recipes[recipe.Name] = &recipe
	}

	return nil
}

func (rm *RecipeManager) persistRecipe(recipe *Recipe) error {
	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}

	data, err := yaml.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to serialize recipe: %w", err)
	}

	recipePath := filepath.Join(rm.storePath, recipeFilename(recipe.Name))
	if err := os.WriteFile(recipePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}

	return nil
}

// recipeFilename maps a recipe name to a distinct file name. Names made only
// of letters, digits, '-' and '_' are used as is; any other name gets a
// readable slug followed by ".<hex of the name>". Plain names never contain
// '.', so two names never share a file.
func recipeFilename(name string) string {
	slug := sanitizeFilename(name)
	if slug == name {
		return name + recipeExt
	}
	return slug + "." + string(EncodeHex([]byte(name))) + recipeExt
}

// sanitizeFilename keeps letters, digits, '-' and '_'; spaces become '_'
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "recipe"
	}
	return b.String()
}

// SearchRecipes finds recipes whose name, description or tags contain query,
// ignoring case
func (rm *RecipeManager) SearchRecipes(query string) []*Recipe {
	query = strings.ToLower(query)
	matches := func(s string) bool { return strings.Contains(strings.ToLower(s), query) }

	var results []*Recipe
	for _, recipe := range rm.ListRecipes() {
		if matches(recipe.Name) || matches(recipe.Description) {
			results = append(results, recipe)
			continue
		}
		for _, tag := range recipe.Tags {
			if matches(tag) {
				results = append(results, recipe)
				break
			}
		}
	}

	return results
}
