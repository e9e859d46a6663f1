package gateways

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/services"
)

// JSONSchemaURL is the $schema of every emitted document
const JSONSchemaURL = "http://cyclonedx.org/schema/bom-1.6.schema.json"

var licenseURLs = map[string]string{
	"Apache-2.0": "https://www.apache.org/licenses/LICENSE-2.0",
	"MIT":        "https://opensource.org/license/mit",
}

// cycloneDXAssembler turns a resolution into a CycloneDX 1.6 document
type cycloneDXAssembler struct{}

// NewCycloneDXAssembler creates a new document assembler
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewCycloneDXAssembler() *cycloneDXAssembler {
	return &cycloneDXAssembler{}
}

// Assemble builds the document for res. Every identifier comes from reg; a
// key missing from reg is an error.
func (a *cycloneDXAssembler) Assemble(res *entities.Resolution, reg *services.Registry, opts entities.DocumentOptions) (*cyclonedx.BOM, error) {
	if res == nil || reg == nil {
		return nil, fmt.Errorf("resolution and registry are required")
	}

	root, err := a.rootComponent(res, reg)
	if err != nil {
		return nil, err
	}

	present := make(map[entities.Key]bool, len(res.Dependencies))
	for _, dep := range res.Dependencies {
		present[dep.Key] = true
	}

	// Children are nested under their parent; the rest is top-level
	components := make([]cyclonedx.Component, 0, len(res.Dependencies))
	graph := []cyclonedx.Dependency{{Ref: root.BOMRef}}
	rootEdges := make([]string, 0, len(res.Dependencies))

	for _, dep := range res.Dependencies {
		entry, err := services.CatalogEntryFor(dep.Key)
		if err != nil {
			return nil, err
		}
		if entry.Parent != entities.KeyAndroidToolsStatic {
			if !present[entry.Parent] {
				return nil, fmt.Errorf("%w: %s is nested under %s, which is not part of the build",
					entities.ErrBrokenReference, dep.Key, entry.Parent)
			}
			continue
		}

		c, err := a.component(dep, entry, reg)
		if err != nil {
			return nil, err
		}

		var nested []cyclonedx.Component
		var childRefs []string
		for _, child := range res.Dependencies {
			childEntry, err := services.CatalogEntryFor(child.Key)
			if err != nil {
				return nil, err
			}
			if childEntry.Parent != dep.Key {
				continue
			}
			cc, err := a.component(child, childEntry, reg)
			if err != nil {
				return nil, err
			}
			nested = append(nested, cc)
			childRefs = append(childRefs, cc.BOMRef)
		}

		node := cyclonedx.Dependency{Ref: c.BOMRef}
		if len(nested) > 0 {
			c.Components = &nested
			node.Dependencies = &childRefs
		}

		components = append(components, c)
		rootEdges = append(rootEdges, c.BOMRef)
		graph = append(graph, node)
		for _, ref := range childRefs {
			graph = append(graph, cyclonedx.Dependency{Ref: ref})
		}
	}
	if len(rootEdges) > 0 {
		graph[0].Dependencies = &rootEdges
	}

	lifecycle := opts.Lifecycle
	if lifecycle == "" {
		lifecycle = entities.LifecycleBuild
	}

	metadata := &cyclonedx.Metadata{
		Lifecycles: &[]cyclonedx.Lifecycle{{Phase: cyclonedx.LifecyclePhase(lifecycle)}},
		Supplier:   organization(services.SupplierGitHub),
		Component:  root,
	}
	if opts.Timestamp != nil {
		metadata.Timestamp = opts.Timestamp.UTC().Format(time.RFC3339)
	}
	if opts.ToolVersion != "" {
		metadata.Tools = &cyclonedx.ToolsChoice{
			Components: &[]cyclonedx.Component{{
				Type:    cyclonedx.ComponentTypeApplication,
				Name:    "sbomgen",
				Version: opts.ToolVersion,
			}},
		}
	}

	bom := cyclonedx.NewBOM()
	bom.JSONSchema = JSONSchemaURL
	bom.BOMFormat = cyclonedx.BOMFormat
	bom.SpecVersion = cyclonedx.SpecVersion1_6
	bom.Version = 1
	bom.Metadata = metadata
	bom.Components = &components
	bom.Dependencies = &graph
	return bom, nil
}

func (a *cycloneDXAssembler) rootComponent(res *entities.Resolution, reg *services.Registry) (*cyclonedx.Component, error) {
	id, err := reg.Lookup(entities.KeyAndroidToolsStatic)
	if err != nil {
		return nil, err
	}
	entry, err := services.CatalogEntryFor(entities.KeyAndroidToolsStatic)
	if err != nil {
		return nil, err
	}

	name := res.Root.Name
	if name == "" {
		name = entry.DisplayName
	}

	root := &cyclonedx.Component{
		BOMRef:      id.BOMRef,
		Type:        cyclonedx.ComponentTypeApplication,
		Name:        name,
		Version:     res.Root.Version,
		Description: entry.Description,
		PackageURL:  id.Purl,
		Properties: &[]cyclonedx.Property{
			{Name: "target.architecture", Value: res.Target.Arch},
			{Name: "target.endian", Value: "little"},
			{Name: "target.os", Value: string(res.Target.OS)},
		},
	}

	var refs []cyclonedx.ExternalReference
	if site := strings.TrimSuffix(res.Root.RepoURL, "/"); site != "" {
		refs = append(refs,
			cyclonedx.ExternalReference{Type: cyclonedx.ERTypeWebsite, URL: site},
			cyclonedx.ExternalReference{Type: cyclonedx.ERTypeVCS, URL: site + ".git"},
			cyclonedx.ExternalReference{Type: cyclonedx.ERTypeIssueTracker, URL: site + "/issues"},
		)
	}

	licenses := res.Root.Licenses
	if len(licenses) == 0 {
		licenses = []string{entry.License}
	}
	choices, licenseRefs := licenseChoices(licenses)
	root.Licenses = choices
	refs = append(refs, licenseRefs...)
	if len(refs) > 0 {
		root.ExternalReferences = &refs
	}

	ancestors, err := a.ancestors(res.Root, reg)
	if err != nil {
		return nil, err
	}
	if len(ancestors) > 0 || len(res.Root.PortCommits) > 0 {
		root.Pedigree = &cyclonedx.Pedigree{Commits: commits(res.Root.PortCommits)}
		if len(ancestors) > 0 {
			root.Pedigree.Ancestors = &ancestors
		}
	}
	return root, nil
}

// ancestors lists the upstream projects the port derives from. The nmeum
// ancestor carries the commits inherited from it.
func (a *cycloneDXAssembler) ancestors(root entities.RootComponent, reg *services.Registry) ([]cyclonedx.Component, error) {
	base := root.BaseVersions
	var out []cyclonedx.Component
	for _, ancestor := range []entities.ResolvedDependency{
		{Key: entities.KeyNmeumAndroidTools, Version: base.Nmeum},
		{Key: entities.KeyMSYS2AndroidTools, Version: base.MSYS2},
	} {
		if ancestor.Version == "" {
			continue
		}
		entry, err := services.CatalogEntryFor(ancestor.Key)
		if err != nil {
			return nil, err
		}
		c, err := a.component(ancestor, entry, reg)
		if err != nil {
			return nil, err
		}
		if ancestor.Key == entities.KeyNmeumAndroidTools && len(root.NmeumCommits) > 0 {
			c.Pedigree = &cyclonedx.Pedigree{Commits: commits(root.NmeumCommits)}
		}
		out = append(out, c)
	}
	return out, nil
}

func (a *cycloneDXAssembler) component(dep entities.ResolvedDependency, entry services.CatalogEntry, reg *services.Registry) (cyclonedx.Component, error) {
	id, err := reg.Lookup(dep.Key)
	if err != nil {
		return cyclonedx.Component{}, err
	}

	name := entry.DisplayName
	if dep.Name != "" {
		name = dep.Name
	}

	c := cyclonedx.Component{
		BOMRef:      id.BOMRef,
		Type:        cyclonedx.ComponentType(entry.ComponentType),
		Supplier:    organization(entry.Supplier),
		Name:        name,
		Version:     dep.Version,
		Description: entry.Description,
		PackageURL:  id.Purl,
	}

	var refs []cyclonedx.ExternalReference
	if entry.Website != "" {
		refs = append(refs, cyclonedx.ExternalReference{Type: cyclonedx.ERTypeWebsite, URL: entry.Website})
	}
	if dep.VCSURL != "" {
		refs = append(refs, cyclonedx.ExternalReference{Type: cyclonedx.ERTypeVCS, URL: dep.VCSURL})
	}
	if entry.IssueTracker != "" {
		refs = append(refs, cyclonedx.ExternalReference{Type: cyclonedx.ERTypeIssueTracker, URL: entry.IssueTracker})
	}
	if d := dep.Distribution; d != nil {
		hashes := []cyclonedx.Hash{{Algorithm: cyclonedx.HashAlgoSHA256, Value: d.SHA256}}
		refs = append(refs, cyclonedx.ExternalReference{Type: cyclonedx.ERTypeDistribution, URL: d.URL, Hashes: &hashes})
		c.Hashes = &[]cyclonedx.Hash{{Algorithm: cyclonedx.HashAlgoSHA256, Value: d.SHA256}}
	}
	if dep.BOMURL != "" {
		refs = append(refs, cyclonedx.ExternalReference{Type: cyclonedx.ERTypeBOM, URL: dep.BOMURL})
	}

	licenses := dep.Licenses
	if len(licenses) == 0 && entry.License != "" {
		licenses = []string{entry.License}
	}
	if len(licenses) > 0 {
		choices, licenseRefs := licenseChoices(licenses)
		c.Licenses = choices
		refs = append(refs, licenseRefs...)
	}
	if len(refs) > 0 {
		c.ExternalReferences = &refs
	}

	if len(dep.Patches) > 0 {
		c.Pedigree = &cyclonedx.Pedigree{Patches: patches(dep.Patches)}
	}

	if len(dep.Properties) > 0 {
		props := make([]cyclonedx.Property, len(dep.Properties))
		for i, p := range dep.Properties {
			props[i] = cyclonedx.Property{Name: p.Name, Value: p.Value}
		}
		c.Properties = &props
	}
	return c, nil
}

func commits(in []entities.Commit) *[]cyclonedx.Commit {
	if len(in) == 0 {
		return nil
	}
	out := make([]cyclonedx.Commit, len(in))
	for i, c := range in {
		out[i] = cyclonedx.Commit{
			UID:     c.UID,
			URL:     c.URL,
			Author:  &cyclonedx.IdentifiableAction{Name: c.AuthorName, Email: c.AuthorEmail},
			Message: c.Message,
		}
	}
	return &out
}

// patches renders local wrap patches. The issue id is the patch path, as
// the issues have no identifier of their own.
func patches(in []entities.Patch) *[]cyclonedx.Patch {
	out := make([]cyclonedx.Patch, len(in))
	for i, p := range in {
		out[i] = cyclonedx.Patch{
			Type: cyclonedx.PatchTypeUnofficial,
			Diff: &cyclonedx.Diff{
				Text: &cyclonedx.AttachedText{Content: p.Content},
				URL:  p.URL,
			},
		}
		if p.Issue != nil {
			issue := cyclonedx.Issue{
				ID:          p.Path,
				Type:        cyclonedx.IssueType(p.Issue.Type),
				Name:        p.Issue.Name,
				Description: p.Issue.Description,
			}
			if p.Issue.SourceURL != "" {
				issue.Source = &cyclonedx.Source{Name: p.Issue.SourceName, URL: p.Issue.SourceURL}
			}
			out[i].Resolves = &[]cyclonedx.Issue{issue}
		}
	}
	return &out
}

func organization(s *services.Supplier) *cyclonedx.OrganizationalEntity {
	if s == nil {
		return nil
	}
	org := &cyclonedx.OrganizationalEntity{Name: s.Name}
	if s.URL != "" {
		org.URL = &[]string{s.URL}
	}
	return org
}

// licenseChoices renders SPDX identifiers. A compound expression is emitted
// alone, since CycloneDX forbids mixing expressions with licenses.
func licenseChoices(ids []string) (*cyclonedx.Licenses, []cyclonedx.ExternalReference) {
	compound := false
	for _, id := range ids {
		if strings.ContainsAny(id, " ()") {
			compound = true
		}
	}
	if compound {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = id
			if len(ids) > 1 && strings.Contains(id, " ") {
				parts[i] = "(" + id + ")"
			}
		}
		return &cyclonedx.Licenses{{Expression: strings.Join(parts, " AND ")}}, nil
	}

	choices := make(cyclonedx.Licenses, 0, len(ids))
	var refs []cyclonedx.ExternalReference
	for _, id := range ids {
		l := &cyclonedx.License{ID: id}
		if url, ok := licenseURLs[id]; ok {
			l.URL = url
			refs = append(refs, cyclonedx.ExternalReference{Type: cyclonedx.ERTypeLicense, URL: url})
		}
		choices = append(choices, cyclonedx.LicenseChoice{License: l})
	}
	return &choices, refs
}

// Encode renders bom as pretty JSON. The serial number is a UUIDv5 over the
// canonical form of the document without it, so equal inputs give equal
// bytes. bom.SerialNumber is updated in place.
func (a *cycloneDXAssembler) Encode(bom *cyclonedx.BOM) ([]byte, error) {
	unsigned := *bom
	unsigned.SerialNumber = ""
	raw, err := encodeBOM(&unsigned)
	if err != nil {
		return nil, err
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}
	bom.SerialNumber = uuid.NewSHA1(uuid.NameSpaceURL, canonical).URN()

	return encodeBOM(bom)
}

func encodeBOM(bom *cyclonedx.BOM) ([]byte, error) {
	var buf bytes.Buffer
	encoder := cyclonedx.NewBOMEncoder(&buf, cyclonedx.BOMFileFormatJSON)
	encoder.SetPretty(true)
	if err := encoder.EncodeVersion(bom, cyclonedx.SpecVersion1_6); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBOM parses a CycloneDX JSON document
func DecodeBOM(data []byte) (*cyclonedx.BOM, error) {
	bom := new(cyclonedx.BOM)
	if err := cyclonedx.NewBOMDecoder(bytes.NewReader(data), cyclonedx.BOMFileFormatJSON).Decode(bom); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSchemaViolation, err)
	}
	return bom, nil
}

// DigestJCS returns the sha256 hex digest of the RFC 8785 canonical form
func DigestJCS(data []byte) (string, error) {
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize document: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CheckCrossReferences verifies that the dependency graph and the components
// name each other: every graph reference is a component, every component
// has a graph node and every purl equals its bom-ref. Pedigree ancestors
// describe provenance and take no part in the graph.
func CheckCrossReferences(bom *cyclonedx.BOM) error {
	known := make(map[string]bool)
	var order []string

	var visit func(c *cyclonedx.Component) error
	visit = func(c *cyclonedx.Component) error {
		if c.BOMRef == "" {
			return fmt.Errorf("%w: component %q has no bom-ref", entities.ErrBrokenReference, c.Name)
		}
		if c.PackageURL != c.BOMRef {
			return fmt.Errorf("%w: component %q has purl %q but bom-ref %q",
				entities.ErrBrokenReference, c.Name, c.PackageURL, c.BOMRef)
		}
		if known[c.BOMRef] {
			return fmt.Errorf("%w: bom-ref %q is used twice", entities.ErrBrokenReference, c.BOMRef)
		}
		known[c.BOMRef] = true
		order = append(order, c.BOMRef)
		if c.Components != nil {
			for i := range *c.Components {
				if err := visit(&(*c.Components)[i]); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if bom.Metadata != nil && bom.Metadata.Component != nil {
		if err := visit(bom.Metadata.Component); err != nil {
			return err
		}
	}
	if bom.Components != nil {
		for i := range *bom.Components {
			if err := visit(&(*bom.Components)[i]); err != nil {
				return err
			}
		}
	}

	nodes := make(map[string]bool)
	if bom.Dependencies != nil {
		for _, dep := range *bom.Dependencies {
			if !known[dep.Ref] {
				return fmt.Errorf("%w: dependency graph node %q is not a component", entities.ErrBrokenReference, dep.Ref)
			}
			if nodes[dep.Ref] {
				return fmt.Errorf("%w: dependency graph node %q appears twice", entities.ErrBrokenReference, dep.Ref)
			}
			nodes[dep.Ref] = true
			if dep.Dependencies == nil {
				continue
			}
			for _, target := range *dep.Dependencies {
				if !known[target] {
					return fmt.Errorf("%w: %q depends on unknown %q", entities.ErrBrokenReference, dep.Ref, target)
				}
			}
		}
	}

	for _, ref := range order {
		if !nodes[ref] {
			return fmt.Errorf("%w: component %q has no dependency graph node", entities.ErrBrokenReference, ref)
		}
	}
	return nil
}

// CheckCrossReferences runs the package-level check on bom
func (a *cycloneDXAssembler) CheckCrossReferences(bom *cyclonedx.BOM) error {
	return CheckCrossReferences(bom)
}

// Digest returns the JCS digest of an encoded document
func (a *cycloneDXAssembler) Digest(data []byte) (string, error) {
	return DigestJCS(data)
}

// Decode parses an encoded document
func (a *cycloneDXAssembler) Decode(data []byte) (*cyclonedx.BOM, error) {
	return DecodeBOM(data)
}
