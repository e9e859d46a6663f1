package services

import (
	"fmt"

	"github.com/package-url/packageurl-go"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

// Binding ties a key to the concrete version selected by one build
type Binding struct {
	Key     entities.Key
	Version string

	// PackageName overrides the catalog purl name
	PackageName string

	// BasePurl replaces the catalog purl entirely (versionless)
	BasePurl string
}

// Registry maps dependency keys to their purl and bom-ref.
// It is immutable once NewRegistry returns.
type Registry struct {
	ids   [entities.KeyCount]entities.Identifier
	bound [entities.KeyCount]bool
	order []entities.Key
}

// NewRegistry builds a registry from bindings. Two keys producing the same
// purl, or one key bound twice, is a construction error.
func NewRegistry(bindings []Binding) (*Registry, error) {
	r := &Registry{order: make([]entities.Key, 0, len(bindings))}
	owners := make(map[string]entities.Key, len(bindings))

	for _, b := range bindings {
		if !b.Key.Valid() {
			return nil, fmt.Errorf("%w: %s", entities.ErrUnknownKey, b.Key)
		}
		if r.bound[b.Key] {
			return nil, fmt.Errorf("%w: key %s bound twice", entities.ErrDuplicateIdentifier, b.Key)
		}

		purl, err := buildPurl(b)
		if err != nil {
			return nil, fmt.Errorf("failed to build purl for %s: %w", b.Key, err)
		}
		if owner, taken := owners[purl]; taken {
			return nil, fmt.Errorf("%w: %s and %s both map to %s", entities.ErrDuplicateIdentifier, owner, b.Key, purl)
		}
		owners[purl] = b.Key

		r.ids[b.Key] = entities.Identifier{Purl: purl, BOMRef: purl}
		r.bound[b.Key] = true
		r.order = append(r.order, b.Key)
	}

	return r, nil
}

// Lookup returns the identifiers bound to key
func (r *Registry) Lookup(key entities.Key) (entities.Identifier, error) {
	if !key.Valid() || !r.bound[key] {
		return entities.Identifier{}, fmt.Errorf("%w: %s", entities.ErrUnknownKey, key)
	}
	return r.ids[key], nil
}

// Has reports whether key is bound
func (r *Registry) Has(key entities.Key) bool {
	return key.Valid() && r.bound[key]
}

// Keys returns the bound keys in binding order
func (r *Registry) Keys() []entities.Key {
	keys := make([]entities.Key, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of bound keys
func (r *Registry) Len() int {
	return len(r.order)
}

func buildPurl(b Binding) (string, error) {
	var p *packageurl.PackageURL
	if b.BasePurl != "" {
		parsed, err := packageurl.FromString(b.BasePurl)
		if err != nil {
			return "", fmt.Errorf("invalid base purl %q: %w", b.BasePurl, err)
		}
		if parsed.Version != "" {
			return "", fmt.Errorf("base purl %q must not carry a version", b.BasePurl)
		}
		p = &parsed
	} else {
		entry := catalog[b.Key]
		name := entry.Name
		if b.PackageName != "" {
			name = b.PackageName
		}
		p = packageurl.NewPackageURL(entry.PurlType, entry.Namespace, name, "", nil, "")
	}
	p.Version = b.Version

	purl := p.ToString()
	if _, err := packageurl.FromString(purl); err != nil {
		return "", fmt.Errorf("generated purl %q does not parse: %w", purl, err)
	}
	return purl, nil
}

// BindingsFor returns the bindings a document for res needs: the root, the
// pedigree ancestors named by its base versions and every resolved
// dependency, in that order.
func BindingsFor(res *entities.Resolution) []Binding {
	bindings := make([]Binding, 0, len(res.Dependencies)+3)
	bindings = append(bindings, Binding{
		Key:      entities.KeyAndroidToolsStatic,
		Version:  res.Root.Version,
		BasePurl: res.Root.Purl,
	})
	if v := res.Root.BaseVersions.Nmeum; v != "" {
		bindings = append(bindings, Binding{Key: entities.KeyNmeumAndroidTools, Version: v})
	}
	if v := res.Root.BaseVersions.MSYS2; v != "" {
		bindings = append(bindings, Binding{Key: entities.KeyMSYS2AndroidTools, Version: v})
	}
	for _, dep := range res.Dependencies {
		bindings = append(bindings, Binding{
			Key:         dep.Key,
			Version:     dep.Version,
			PackageName: dep.PackageName,
		})
	}
	return bindings
}
