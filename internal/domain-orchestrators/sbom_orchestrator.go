// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/CycloneDX/cyclonedx-go"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/interfaces"
	"github.com/meator/android-tools-static/internal/domain/interfaces/gateways"
	"github.com/meator/android-tools-static/internal/domain/interfaces/repositories"
	"github.com/meator/android-tools-static/internal/domain/services"
)

// EnvironmentLoader interface for collecting the build environment
type EnvironmentLoader interface {
	Load(ctx context.Context, req entities.EnvironmentRequest) (*entities.BuildEnvironment, error)
}

// DocumentAssembler interface for building and encoding CycloneDX documents
type DocumentAssembler interface {
	Assemble(res *entities.Resolution, reg *services.Registry, opts entities.DocumentOptions) (*cyclonedx.BOM, error)
	CheckCrossReferences(bom *cyclonedx.BOM) error
	Encode(bom *cyclonedx.BOM) ([]byte, error)
	Decode(data []byte) (*cyclonedx.BOM, error)
	Digest(data []byte) (string, error)
}

// SBOMOrchestrator coordinates SBOM generation and validation
type SBOMOrchestrator struct {
	manifests   repositories.ManifestRepository
	environment EnvironmentLoader
	resolver    *services.Resolver
	assembler   DocumentAssembler
	validator   gateways.SchemaValidator
	writer      gateways.DocumentWriter
	logger      interfaces.Logger
}

// NewSBOMOrchestrator creates a new SBOM orchestrator
func NewSBOMOrchestrator(
	manifests repositories.ManifestRepository,
	environment EnvironmentLoader,
	assembler DocumentAssembler,
	validator gateways.SchemaValidator,
	writer gateways.DocumentWriter,
	logger interfaces.Logger,
) *SBOMOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &SBOMOrchestrator{
		manifests:   manifests,
		environment: environment,
		resolver:    services.NewResolver(),
		assembler:   assembler,
		validator:   validator,
		writer:      writer,
		logger:      logger,
	}
}

// GenerateRequest describes one SBOM to generate
type GenerateRequest struct {
	// Platform is a target identifier such as "linux-cross-aarch64"
	Platform     string
	ManifestPath string
	OutputPath   string

	Environment entities.EnvironmentRequest

	// RootVersion is used when the manifest does not name the root project
	RootVersion string

	// Timestamp is recorded in metadata when set
	Timestamp   *time.Time
	ToolVersion string

	// Sidecar writes OutputPath + ".sha256"
	Sidecar bool
}

// GenerateResult contains the result of a generation
type GenerateResult struct {
	OutputPath     string
	SidecarPath    string
	ComponentCount int

	// Digest is the sha256 of the canonical (JCS) form of the document
	Digest   string
	Duration time.Duration
}

// Generate executes the complete generation workflow. Nothing is written
// unless every step succeeds.
func (o *SBOMOrchestrator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	startTime := time.Now()

	// Step 1: Parse the target
	target, err := services.ParseTarget(req.Platform)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("Selected entry point", interfaces.F("platform", target.ID()), interfaces.F("entry_point", target.EntryPoint()))

	// Step 2: Read the dependency manifest
	manifest, err := o.manifests.GetManifest(ctx, req.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	o.logger.Debug("Read manifest", interfaces.F("format", manifest.Format), interfaces.F("entries", len(manifest.Entries)))

	// Step 3: Load the build environment
	envReq := req.Environment
	envReq.Manifest = manifest
	env, err := o.environment.Load(ctx, envReq)
	if err != nil {
		return nil, fmt.Errorf("failed to load build environment: %w", err)
	}
	if env == nil {
		env = &entities.BuildEnvironment{}
	}
	if req.RootVersion != "" {
		env.RootVersion = req.RootVersion
	}

	// Step 4: Resolve dependencies
	res, err := o.resolver.Resolve(manifest, target, env, services.Root())
	if err != nil {
		return nil, err
	}
	if res.Root.Version == "" {
		return nil, fmt.Errorf("%w: no version for %s in the manifest or the environment", entities.ErrEnvironment, res.Root.Name)
	}

	// Step 5: Bind identifiers
	registry, err := services.NewRegistry(services.BindingsFor(res))
	if err != nil {
		return nil, err
	}

	// Step 6: Assemble the document
	opts := entities.DocumentOptions{
		Lifecycle:   entities.LifecycleBuild,
		Timestamp:   req.Timestamp,
		ToolVersion: req.ToolVersion,
	}
	if req.Environment.FakeVersions {
		opts.Lifecycle = entities.LifecycleDesign
		o.logger.Warn("Fake versions requested, the document is marked as a design-time SBOM")
	}
	bom, err := o.assembler.Assemble(res, registry, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble document: %w", err)
	}

	// Step 7: Check cross-references
	if err := o.assembler.CheckCrossReferences(bom); err != nil {
		return nil, err
	}

	// Step 8: Encode
	data, err := o.assembler.Encode(bom)
	if err != nil {
		return nil, err
	}

	// Step 9: Validate against the schema
	if err := o.validator.Validate(data); err != nil {
		return nil, err
	}

	digest, err := o.assembler.Digest(data)
	if err != nil {
		return nil, err
	}

	// Step 10: Write
	sidecarPath, err := o.writer.Write(req.OutputPath, data, req.Sidecar)
	if err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	result := &GenerateResult{
		OutputPath:     req.OutputPath,
		SidecarPath:    sidecarPath,
		ComponentCount: len(res.Dependencies),
		Digest:         digest,
		Duration:       time.Since(startTime),
	}
	o.logger.Info("Generated SBOM",
		interfaces.F("path", result.OutputPath),
		interfaces.F("components", result.ComponentCount),
		interfaces.F("digest", result.Digest))
	return result, nil
}

// Validate checks an encoded document against the schema and its
// cross-references, and returns its JCS digest.
func (o *SBOMOrchestrator) Validate(_ context.Context, data []byte) (string, error) {
	if err := o.validator.Validate(data); err != nil {
		return "", err
	}
	bom, err := o.assembler.Decode(data)
	if err != nil {
		return "", err
	}
	if err := o.assembler.CheckCrossReferences(bom); err != nil {
		return "", err
	}
	return o.assembler.Digest(data)
}
