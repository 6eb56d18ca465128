package location

import "sync"

// ReportedProvider is a Provider for devices that push their own readings
// to the server. Requests are counted so the client can be told to prompt
// the user; Updating reflects whether the tracker wants fixes right now.
type ReportedProvider struct {
	mu       sync.Mutex
	updating bool
	requests int
}

func (p *ReportedProvider) RequestWhenInUseAuthorization() {
	p.mu.Lock()
	p.requests++
	p.mu.Unlock()
}

func (p *ReportedProvider) StartUpdates() {
	p.mu.Lock()
	p.updating = true
	p.mu.Unlock()
}

func (p *ReportedProvider) StopUpdates() {
	p.mu.Lock()
	p.updating = false
	p.mu.Unlock()
}

func (p *ReportedProvider) Updating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updating
}

// PermissionRequests is how many times the tracker asked for permission
func (p *ReportedProvider) PermissionRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}
