package scheduler_test

import (
	"fmt"

	"github.com/vnykmshr/taskflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

func Example() {
	pool, _ := workerpool.New(2)
	defer func() { <-pool.Shutdown() }()

	s, err := scheduler.New(scheduler.Config{Pool: pool, Name: "reports"})
	if err != nil {
		panic(err)
	}

	err = scheduler.Schedule(s, "nightly", "0 2 * * *",
		func() (int, error) { return 0, nil },
		scheduler.WithSkipIfStillRunning(),
	)
	fmt.Println(err)

	s.Start()
	<-s.Stop()

	for _, e := range s.List() {
		fmt.Println(e.ID, e.Expression)
	}
	// Output:
	// <nil>
	// nightly 0 2 * * *
}

func ExampleScheduler_ValidateExpression() {
	pool, _ := workerpool.New(1)
	defer func() { <-pool.Shutdown() }()

	s, _ := scheduler.New(scheduler.Config{Pool: pool})
	fmt.Println(s.ValidateExpression("*/15 * * * *") == nil)
	fmt.Println(s.ValidateExpression("not a schedule") == nil)
	// Output:
	// true
	// false
}
