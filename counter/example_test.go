package counter_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/engineops/counter"
)

func ExampleMemorySink() {
	sink := counter.NewMemorySink()
	ctx := context.Background()

	sink.Increment(ctx, "compilations", 1)
	sink.Increment(ctx, "lines", 42)
	sink.Increment(ctx, "lines", 8)

	total, _ := sink.Total(ctx, "lines")
	fmt.Println("Lines:", total)
	// Output:
	// Lines: 50
}
