package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matsen/citegraph/internal/viz"
)

// TabGroup is a set of tabs of which exactly one is active.
type TabGroup string

// Tab groups.
const (
	TabGroupMain  TabGroup = "main"
	TabGroupQuery TabGroup = "query"
)

// ErrUnknownTab is returned when a tab id is not in its group.
var ErrUnknownTab = errors.New("unknown tab")

var tabGroups = map[TabGroup][]string{
	TabGroupMain:  viz.Tabs,
	TabGroupQuery: viz.QueryTabs,
}

func defaultTabs() map[TabGroup]string {
	return map[TabGroup]string{
		TabGroupMain:  viz.TabAddPaper,
		TabGroupQuery: viz.QueryTabAuthor,
	}
}

// ShowTab makes id the active tab of group. Other groups are unaffected.
func (c *Controller) ShowTab(group TabGroup, id string) error {
	ids, ok := tabGroups[group]
	if !ok || !slices.Contains(ids, id) {
		return fmt.Errorf("%w: %s/%s", ErrUnknownTab, group, id)
	}
	c.mu.Lock()
	c.tabs[group] = id
	c.mu.Unlock()
	return nil
}

// ActiveTab returns the active tab of group.
func (c *Controller) ActiveTab(group TabGroup) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tabs[group]
}
