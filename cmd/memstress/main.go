// Command memstress drives the allocators with a synthetic per-goroutine
// workload and prints their metrics.
package main

func main() {
	execute()
}
