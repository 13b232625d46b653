package zotero

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/doitian/readwise-scripts/internal/entities"
)

const noteFetchWorkers = 4

// Collector gathers the annotation records of the items selected in Zotero.
type Collector struct {
	client    *Client
	converter *NoteConverter
	Verbose   bool
}

func NewCollector(client *Client, converter *NoteConverter) *Collector {
	return &Collector{client: client, converter: converter}
}

// Collect fetches notes concurrently and converts them in selection order.
func (c *Collector) Collect(ctx context.Context) ([]entities.Highlight, error) {
	items, err := c.client.SelectedItems(ctx)
	if err != nil {
		return nil, err
	}
	if c.Verbose {
		log.Printf("Zotero selection has %d items", len(items))
	}

	notes := make([][]string, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(noteFetchWorkers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			itemNotes, err := c.client.ItemNotes(gctx, item.ID)
			if err != nil {
				return err
			}
			notes[i] = itemNotes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []entities.Highlight
	for i, item := range items {
		converted, err := c.converter.Convert(item, notes[i])
		if err != nil {
			return nil, err
		}
		if c.Verbose {
			log.Printf("%s: %d notes, %d highlights", item.Title, len(notes[i]), len(converted))
		}
		records = append(records, converted...)
	}
	return records, nil
}
