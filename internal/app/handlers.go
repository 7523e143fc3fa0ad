package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/events"
	"github.com/matsen/citegraph/internal/forms"
	"github.com/matsen/citegraph/internal/query"
	"github.com/matsen/citegraph/internal/state"
)

// locked adapts a handler that only touches viewer state into one that
// runs under the controller lock.
func (c *Controller) locked(fn func(ev events.Event) error) events.Handler {
	return func(_ context.Context, ev events.Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return fn(ev)
	}
}

func (c *Controller) registerHandlers() {
	b := c.bus

	b.On(events.ZoomIn, c.locked(func(events.Event) error {
		c.transition = c.view.ZoomIn()
		return nil
	}))
	b.On(events.ZoomOut, c.locked(func(events.Event) error {
		c.transition = c.view.ZoomOut()
		return nil
	}))
	b.On(events.ResetView, c.locked(func(events.Event) error {
		c.transition = c.view.Reset()
		return nil
	}))
	b.On(events.Zoom, c.locked(func(ev events.Event) error {
		c.view.Gesture(ev.X, ev.Y, ev.Factor)
		return nil
	}))
	b.On(events.Pan, c.locked(func(ev events.Event) error {
		c.view.Pan(ev.X, ev.Y)
		return nil
	}))

	b.On(events.ToggleLabels, c.locked(func(events.Event) error {
		visible := c.store.ToggleLabels()
		c.logger.Debug("labels toggled", zap.Bool("visible", visible))
		return nil
	}))
	b.On(events.LayoutForce, c.locked(func(events.Event) error {
		return c.store.SetLayout(state.LayoutForce)
	}))
	b.On(events.LayoutCircular, c.locked(func(events.Event) error {
		return c.store.SetLayout(state.LayoutCircular)
	}))
	b.On(events.Reload, func(ctx context.Context, _ events.Event) error {
		return c.Reload(ctx)
	})

	b.On(events.NodeClick, c.locked(func(ev events.Event) error {
		n, err := c.interact.Click(ev.NodeID)
		if err == nil {
			c.logger.Debug("node selected", zap.String("id", n.ID), zap.String("type", string(n.Type)))
		}
		return err
	}))
	b.On(events.NodeMouseOver, c.locked(func(ev events.Event) error {
		_, err := c.interact.MouseOver(ev.NodeID, ev.X, ev.Y)
		return err
	}))
	b.On(events.NodeMouseOut, c.locked(func(events.Event) error {
		c.interact.MouseOut()
		return nil
	}))
	b.On(events.DragStart, c.locked(func(ev events.Event) error {
		return c.interact.DragStart(ev.NodeID)
	}))
	b.On(events.Drag, c.locked(func(ev events.Event) error {
		return c.interact.Drag(ev.NodeID, ev.X, ev.Y)
	}))
	b.On(events.DragEnd, c.locked(func(ev events.Event) error {
		return c.interact.DragEnd(ev.NodeID)
	}))

	b.On(events.Tab, func(_ context.Context, ev events.Event) error {
		return c.ShowTab(TabGroupMain, ev.Target)
	})
	b.On(events.QueryTab, func(_ context.Context, ev events.Event) error {
		return c.ShowTab(TabGroupQuery, ev.Target)
	})

	b.On(events.SubmitPaper, func(ctx context.Context, ev events.Event) error {
		return c.papers.Submit(ctx, PaperFormFromValues(ev.Values))
	})
	b.On(events.FileDragOver, func(_ context.Context, ev events.Event) error {
		if ev.Value == "leave" {
			c.upload.DragLeave()
		} else {
			c.upload.DragOver()
		}
		return nil
	})
	b.On(events.FileDrop, func(_ context.Context, ev events.Event) error {
		return c.upload.Drop(ev.Files)
	})
	b.On(events.FileSelect, func(_ context.Context, ev events.Event) error {
		if len(ev.Files) == 0 {
			return nil
		}
		return c.upload.Select(ev.Files[0])
	})
	b.On(events.Upload, func(ctx context.Context, _ events.Event) error {
		return c.upload.Upload(ctx)
	})

	b.On(events.QueryAuthor, c.query(query.KindAuthor))
	b.On(events.QueryCitations, c.query(query.KindCitations))
	b.On(events.QueryInfluential, c.query(query.KindInfluential))
}

func (c *Controller) query(kind query.Kind) events.Handler {
	return func(ctx context.Context, ev events.Event) error {
		_, err := c.panel.Run(ctx, kind, ev.Value)
		return err
	}
}

// PaperFormFromValues reads the add-paper form fields by input name.
func PaperFormFromValues(values map[string]string) forms.PaperForm {
	return forms.PaperForm{
		Title:       values["title"],
		Authors:     values["authors"],
		Journal:     values["journal"],
		Year:        values["year"],
		CitedPapers: values["cited_papers"],
	}
}
