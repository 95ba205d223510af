package publish

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/crosspub/crosspub/internal/logutil"
)

// Registration pairs one platform's adapter with its client.
type Registration struct {
	Adapter Adapter
	Client  Client
}

// Request names one destination of a multi-platform publish.
type Request struct {
	Platform Platform
	Options  AdaptOptions
	Config   PlatformConfig
}

// Publisher fans a single publish request out to registered platforms. The
// registry is populated at construction and read-only afterwards, so lookups
// need no locking.
type Publisher struct {
	registry map[Platform]Registration
}

// NewPublisher wires the given registrations into a publisher. A registration
// missing its adapter or client is skipped with a logged error rather than
// half-registered.
func NewPublisher(regs ...Registration) *Publisher {
	registry := make(map[Platform]Registration, len(regs))
	for _, reg := range regs {
		if reg.Adapter == nil || reg.Client == nil {
			logutil.Errorf("skipping incomplete registration: adapter=%v client=%v", reg.Adapter, reg.Client)
			continue
		}
		if reg.Adapter.Platform() != reg.Client.Platform() {
			logutil.Errorf("skipping mismatched registration: adapter=%s client=%s",
				reg.Adapter.Platform(), reg.Client.Platform())
			continue
		}
		registry[reg.Client.Platform()] = reg
	}
	return &Publisher{registry: registry}
}

// IsPlatformSupported reports whether a platform is registered.
func (p *Publisher) IsPlatformSupported(platform Platform) bool {
	_, ok := p.registry[platform]
	return ok
}

// AvailablePlatforms lists the registered platforms in stable order.
func (p *Publisher) AvailablePlatforms() []Platform {
	out := make([]Platform, 0, len(p.registry))
	for platform := range p.registry {
		out = append(out, platform)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AuthenticatePlatform delegates authentication to the registered client.
func (p *Publisher) AuthenticatePlatform(ctx context.Context, platform Platform, creds Credentials) error {
	reg, ok := p.registry[platform]
	if !ok {
		return fmt.Errorf("platform %q is not registered", platform)
	}
	return reg.Client.Authenticate(ctx, creds)
}

// PlatformMetadata delegates the metadata lookup to the registered client.
func (p *Publisher) PlatformMetadata(ctx context.Context, platform Platform) (*PlatformMetadata, error) {
	reg, ok := p.registry[platform]
	if !ok {
		return nil, fmt.Errorf("platform %q is not registered", platform)
	}
	return reg.Client.Metadata(ctx)
}

// PublishToPlatform runs adapt → validate → publish for one platform. It
// never returns an error for expected failure paths: validation failures,
// adaptation errors and client errors all come back as a failed
// PublishResult so fan-out callers aggregate uniformly.
func (p *Publisher) PublishToPlatform(ctx context.Context, platform Platform, content *ContentInput, opts AdaptOptions, cfg PlatformConfig) PublishResult {
	reg, ok := p.registry[platform]
	if !ok {
		return Failure(platform, "platform %q is not registered", platform)
	}

	adapted, err := reg.Adapter.Adapt(content, opts)
	if err != nil {
		return Failure(platform, "content adaptation failed: %v", err)
	}

	if result := reg.Adapter.Validate(adapted); !result.Valid {
		return Failure(platform, "content validation failed: %s", strings.Join(result.Errors, "; "))
	}

	logutil.Debugf("publishing: platform=%s title=%q media=%d", platform, adapted.Title, len(adapted.Media))
	result, err := reg.Client.Publish(ctx, adapted, cfg)
	if err != nil {
		return Failure(platform, "%v", err)
	}
	result.Platform = platform
	return result
}

// PublishToMultiplePlatforms publishes content to every requested platform
// concurrently and independently. The returned map holds exactly one entry
// per requested platform; a failure on one platform never hides or cancels
// the outcome of another.
func (p *Publisher) PublishToMultiplePlatforms(ctx context.Context, reqs []Request, content *ContentInput) map[Platform]PublishResult {
	// seed every entry before the first goroutine starts so the map sees no
	// unsynchronized writes once the workers are running.
	results := make(map[Platform]PublishResult, len(reqs))
	unique := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		if _, dup := results[req.Platform]; dup {
			continue
		}
		results[req.Platform] = Failure(req.Platform, "publish did not complete")
		unique = append(unique, req)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, req := range unique {
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			result := p.publishRecovering(ctx, req, content)
			mu.Lock()
			results[req.Platform] = result
			mu.Unlock()
		}(req)
	}

	wg.Wait()
	return results
}

// publishRecovering converts a panicking client into an ordinary failure so
// one broken platform cannot abort a fan-out.
func (p *Publisher) publishRecovering(ctx context.Context, req Request, content *ContentInput) (result PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			logutil.Errorf("publish panicked: platform=%s: %v", req.Platform, r)
			result = Failure(req.Platform, "internal error: %v", r)
		}
	}()
	return p.PublishToPlatform(ctx, req.Platform, content, req.Options, req.Config)
}
