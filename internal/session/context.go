package session

import (
	"sync"

	"github.com/hsp-league/league-backend/internal/client"
	"github.com/hsp-league/league-backend/internal/docstore"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

// Context holds what one signed-in session needs: the match list cursor,
// the admin flag, the profile and the live subscriptions. It is created on
// sign-in and torn down on sign-out.
type Context struct {
	mu      sync.Mutex
	page    int
	admin   bool
	profile *profiledomain.Profile
	balance int64

	points docstore.Slot
	chat   docstore.Slot
}

func newContext() *Context {
	return &Context{page: 1}
}

func (c *Context) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// SetPage moves the match list cursor. Pages start at 1.
func (c *Context) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
}

func (c *Context) Admin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.admin
}

func (c *Context) Points() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// LivePoints reports whether the points subscription is attached.
func (c *Context) LivePoints() bool {
	return c.points.Active()
}

func (c *Context) setMe(me *client.Me) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := me.Profile
	c.profile = &p
	c.admin = me.IsAdmin
	c.balance = me.Points
}

func (c *Context) setProfile(p *profiledomain.Profile) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *p
	c.profile = &cp
}

func (c *Context) setPoints(points int64) {
	c.mu.Lock()
	c.balance = points
	c.mu.Unlock()
}

func (c *Context) fill(v *View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile != nil {
		p := *c.profile
		v.Profile = &p
	}
	v.Points = c.balance
	v.Admin = c.admin
	v.Page = c.page
}

func (c *Context) close() {
	c.points.Close()
	c.chat.Close()
}
