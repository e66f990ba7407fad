package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/streamxlsx/streamxlsx"
)

type BenchmarkResult struct {
	Rows          int
	Duration      float64
	RowsPerSecond float64
	MemoryMB      float64
	FileSize      int64
	FileSizeMB    float64
}

func main() {
	fmt.Println("streamxlsx - Comprehensive Benchmark Suite")
	fmt.Println()

	testSizes := []int{
		100, 500, 1000, 5000, 10000, 25000, 50000,
		100000, 250000, 500000, 750000, 1000000,
	}

	fmt.Println("Running untyped WriteRow tests...")
	fmt.Println()
	untypedResults := make(map[int]*BenchmarkResult)
	for _, size := range testSizes {
		fmt.Printf("Testing %d rows (untyped)... ", size)
		result := benchmarkUntyped(size)
		untypedResults[size] = result
		fmt.Printf("ok %.2fs | %.0f rows/s | %.2f MB memory\n",
			result.Duration, result.RowsPerSecond, result.MemoryMB)
		os.Remove(fmt.Sprintf("benchmark_%d.xlsx", size))
	}

	fmt.Println()
	fmt.Println("Running typed WriteRowTyped tests...")
	fmt.Println()
	typedResults := make(map[int]*BenchmarkResult)
	for _, size := range testSizes {
		fmt.Printf("Testing %d rows (typed)... ", size)
		result := benchmarkTyped(size)
		typedResults[size] = result
		fmt.Printf("ok %.2fs | %.0f rows/s | %.2f MB memory\n",
			result.Duration, result.RowsPerSecond, result.MemoryMB)
		os.Remove(fmt.Sprintf("benchmark_typed_%d.xlsx", size))
	}

	printComparisonTable(testSizes, untypedResults, typedResults)
	benchmarkCompressionLevels(100000)
}

func benchmarkUntyped(rows int) *BenchmarkResult {
	filename := fmt.Sprintf("benchmark_%d.xlsx", rows)

	runtime.GC()
	var m1 runtime.MemStats
	runtime.ReadMemStats(&m1)

	startTime := time.Now()

	sink, _ := streamxlsx.NewFileSink(filename)
	config := streamxlsx.DefaultConfig()
	config.CompressionLevel = 1
	wb := streamxlsx.NewWorkbook(sink, config)

	wb.AddSheet("Bench")
	wb.WriteRowStyled([]interface{}{"ID", "Name", "Email", "Score", "Status"}, streamxlsx.StyleHeaderBold)

	for i := 1; i <= rows; i++ {
		wb.WriteRow([]interface{}{
			i,
			fmt.Sprintf("User %d", i),
			fmt.Sprintf("user%d@example.com", i),
			float64(i % 100),
			"active",
		})
	}

	stats, _ := wb.Close()
	duration := time.Since(startTime).Seconds()

	runtime.GC()
	var m2 runtime.MemStats
	runtime.ReadMemStats(&m2)

	return &BenchmarkResult{
		Rows:          rows,
		Duration:      duration,
		RowsPerSecond: float64(rows) / duration,
		MemoryMB:      float64(m2.Alloc) / 1024 / 1024,
		FileSize:      stats.FileSize,
		FileSizeMB:    float64(stats.FileSize) / 1024 / 1024,
	}
}

func benchmarkTyped(rows int) *BenchmarkResult {
	filename := fmt.Sprintf("benchmark_typed_%d.xlsx", rows)

	runtime.GC()
	var m1 runtime.MemStats
	runtime.ReadMemStats(&m1)

	startTime := time.Now()

	sink, _ := streamxlsx.NewFileSink(filename)
	config := streamxlsx.DefaultConfig()
	config.CompressionLevel = 1
	wb := streamxlsx.NewWorkbook(sink, config)

	wb.AddSheet("Bench")
	cells := make([]streamxlsx.Cell, 5)
	for i := 1; i <= rows; i++ {
		cells[0] = streamxlsx.Int(int64(i))
		cells[1] = streamxlsx.String(fmt.Sprintf("User %d", i))
		cells[2] = streamxlsx.String(fmt.Sprintf("user%d@example.com", i))
		cells[3] = streamxlsx.Float(float64(i % 100))
		cells[4] = streamxlsx.String("active")
		wb.WriteRowTyped(cells)
	}

	stats, _ := wb.Close()
	duration := time.Since(startTime).Seconds()

	runtime.GC()
	var m2 runtime.MemStats
	runtime.ReadMemStats(&m2)

	return &BenchmarkResult{
		Rows:          rows,
		Duration:      duration,
		RowsPerSecond: float64(rows) / duration,
		MemoryMB:      float64(m2.Alloc) / 1024 / 1024,
		FileSize:      stats.FileSize,
		FileSizeMB:    float64(stats.FileSize) / 1024 / 1024,
	}
}

func benchmarkCompressionLevels(rows int) {
	fmt.Println()
	fmt.Println("Compression level comparison:")
	fmt.Println()
	fmt.Println("| Level | Duration | Rows/s | File size |")
	fmt.Println("|-------|----------|--------|-----------|")

	for _, level := range []int{0, 1, 6, 9} {
		filename := fmt.Sprintf("benchmark_level%d.xlsx", level)

		startTime := time.Now()
		sink, _ := streamxlsx.NewFileSink(filename)
		config := streamxlsx.DefaultConfig()
		config.CompressionLevel = level
		wb := streamxlsx.NewWorkbook(sink, config)

		wb.AddSheet("Bench")
		for i := 1; i <= rows; i++ {
			wb.WriteRow([]interface{}{i, fmt.Sprintf("User %d", i), float64(i % 100)})
		}
		stats, _ := wb.Close()
		duration := time.Since(startTime).Seconds()

		fmt.Printf("| %d | %.2fs | %.0f | %.2f MB |\n",
			level, duration, float64(rows)/duration, float64(stats.FileSize)/1024/1024)
		os.Remove(filename)
	}
}

func printComparisonTable(sizes []int, untyped, typed map[int]*BenchmarkResult) {
	fmt.Println()
	fmt.Println("| Rows | Untyped rows/s | Typed rows/s | File size |")
	fmt.Println("|------|----------------|--------------|-----------|")
	for _, size := range sizes {
		u, ok1 := untyped[size]
		ty, ok2 := typed[size]
		if !ok1 || !ok2 {
			continue
		}
		fmt.Printf("| %d | %.0f | %.0f | %.2f MB |\n",
			size, u.RowsPerSecond, ty.RowsPerSecond, u.FileSizeMB)
	}
}
