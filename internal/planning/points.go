/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package planning

import (
    "math"
    "strings"
)

// FibonacciPoints is the only set of story point values the engine emits.
var FibonacciPoints = []int{1, 2, 3, 5, 8, 13, 21}

var daysForPoints = map[int]int{1: 1, 2: 1, 3: 2, 5: 3, 8: 5, 13: 8, 21: 13}

const (
    defaultDays = 3
    minDays     = 1
    maxDays     = 15
)

// Normalize snaps v to the nearest Fibonacci point value. Values <= 0 map to 1
// and an exact tie goes to the lower candidate.
func Normalize(v int) int {
    if v <= 0 { return FibonacciPoints[0] }
    best := FibonacciPoints[0]
    bestDist := abs(v - best)
    for _, p := range FibonacciPoints[1:] {
        if d := abs(v - p); d < bestDist {
            best, bestDist = p, d
        }
    }
    return best
}

func isFibonacci(v int) bool {
    for _, p := range FibonacciPoints { if p == v { return true } }
    return false
}

// BasicEstimate maps the combined word count of title and description to points.
func BasicEstimate(title, description string) int {
    total := len(strings.Fields(title)) + len(strings.Fields(description))
    var points int
    switch {
    case total <= 5: points = 1
    case total <= 10: points = 2
    case total <= 20: points = 3
    case total <= 35: points = 5
    case total <= 50: points = 8
    default: points = 13
    }
    return Normalize(points)
}

// DaysFor is the base day estimate for a point value, before experience scaling.
func DaysFor(points int) int {
    if d, ok := daysForPoints[points]; ok { return d }
    return defaultDays
}

func clampDays(d float64) int {
    n := int(math.Round(d))
    if n < minDays { return minDays }
    if n > maxDays { return maxDays }
    return n
}

func abs(x int) int { if x < 0 { return -x }; return x }
