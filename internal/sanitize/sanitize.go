// Package sanitize strips anything but list and paragraph markup from
// rendered bullet HTML before it is stored or returned to the browser.
package sanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func listPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.NewPolicy()
		policy.AllowElements("p", "ul", "li")
	})
	return policy
}

// BulletHTML keeps <p>, <ul> and <li> and drops every other element and all
// attributes. Text inside dropped elements is kept; script and style bodies
// are removed.
func BulletHTML(html string) string {
	if html == "" {
		return ""
	}
	return listPolicy().Sanitize(html)
}
