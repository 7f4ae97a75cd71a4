package parser

import (
	"fmt"
	"strings"
)

type block struct {
	title  string
	noA    bool
	price  string
	rating string
}

func listingPage(blocks ...block) string {
	var b strings.Builder
	b.WriteString(`<html><body><section><ol class="row">`)
	for i, blk := range blocks {
		b.WriteString(`<li><article class="product_pod">`)
		if !blk.noA {
			if blk.title != "" {
				fmt.Fprintf(&b, `<h3><a href="book-%d/index.html" title="%s">%s</a></h3>`, i, blk.title, blk.title)
			} else {
				fmt.Fprintf(&b, `<h3><a href="book-%d/index.html">untitled</a></h3>`, i)
			}
		}
		if blk.price != "" {
			fmt.Fprintf(&b, `<div class="product_price"><p class="price_color">%s</p></div>`, blk.price)
		}
		if blk.rating != "" {
			fmt.Fprintf(&b, `<p class="%s"><i class="icon-star"></i></p>`, blk.rating)
		}
		b.WriteString(`</article></li>`)
	}
	b.WriteString(`</ol></section></body></html>`)
	return b.String()
}
