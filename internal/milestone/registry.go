package milestone

import (
	"regexp"
	"sort"
)

// Definition describes one learning checkpoint in an algorithm's progression.
// MinTurns is the minimum number of quality turns before the milestone can
// complete; Detect is matched against the student's latest message.
type Definition struct {
	Key      string
	Title    string
	MinTurns int
	Detect   *regexp.Regexp
}

// Registry maps an algorithm name to its ordered milestone definitions.
// Slice order is the canonical progression order. The registry is built once
// at startup and treated as immutable.
type Registry map[string][]Definition

// DefinitionsFor returns the ordered definitions for the algorithm, or an
// empty list for an unknown name. Never errors.
func (r Registry) DefinitionsFor(algorithm string) []Definition {
	return r[algorithm]
}

// Has reports whether the algorithm is registered.
func (r Registry) Has(algorithm string) bool {
	_, ok := r[algorithm]
	return ok
}

// Algorithms returns the registered algorithm names, sorted.
func (r Registry) Algorithms() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the built-in sorting-algorithm curriculum: five
// ordered milestones per algorithm, gated at 2/4/6/8/10 quality turns, each
// with a case-insensitive detection pattern over the student's free text.
func DefaultRegistry() Registry {
	return Registry{
		"Selection Sort": {
			{
				Key:      "sel_1_concept",
				Title:    "Understands 'find-min each pass'",
				MinTurns: 2,
				Detect:   regexp.MustCompile(`(?i)select(ing)?\s+the\s+min(imum)?|argmin|scan\s+for\s+min`),
			},
			{
				Key:      "sel_2_dryrun",
				Title:    "Dry-run on a small array",
				MinTurns: 4,
				Detect:   regexp.MustCompile(`(?i)\[?\s*\d.*\]\s*->|\b(pass|step)\b.*(swap|min)`),
			},
			{
				Key:      "sel_3_swap",
				Title:    "Explains swap to current index i",
				MinTurns: 6,
				Detect:   regexp.MustCompile(`(?i)\bswap\b|\bposition\b|\bindex\s*0\b`),
			},
			{
				Key:      "sel_4_complexity",
				Title:    "States O(n²) and why",
				MinTurns: 8,
				Detect:   regexp.MustCompile(`(?i)O\s*\(\s*n\s*\^\s*2\s*\)|O\s*\(\s*n\s*2\s*\)|\bn\^2\b`),
			},
			{
				Key:      "sel_5_space_stability",
				Title:    "Knows space O(1) & (not) stability",
				MinTurns: 10,
				Detect:   regexp.MustCompile(`(?i)\bspace\b.*O\(1\)|\bstable\b|\bnot\s+stable\b`),
			},
		},
		"Bubble Sort": {
			{
				Key:      "bub_1_concept",
				Title:    "Understands repeated swapping of adjacent elements",
				MinTurns: 2,
				Detect:   regexp.MustCompile(`(?i)\badjacent\b.*swap|bubbl(es|ing)|pairwise\s+compare`),
			},
			{
				Key:      "bub_2_dryrun",
				Title:    "Can trace one pass in an array",
				MinTurns: 4,
				Detect:   regexp.MustCompile(`(?i)pass\s+\d|step\s+\d|after\s+first\s+pass`),
			},
			{
				Key:      "bub_3_optimization",
				Title:    "Knows about early stop optimization",
				MinTurns: 6,
				Detect:   regexp.MustCompile(`(?i)no\s+swap|already\s+sorted|early\s+stop`),
			},
			{
				Key:      "bub_4_complexity",
				Title:    "States O(n²) and average/worst case",
				MinTurns: 8,
				Detect:   regexp.MustCompile(`(?i)O\s*\(\s*n\s*\^\s*2\s*\)|O\s*\(\s*n\s*2\s*\)|\bn\^2\b`),
			},
			{
				Key:      "bub_5_space_stability",
				Title:    "Mentions O(1) space and stability",
				MinTurns: 10,
				Detect:   regexp.MustCompile(`(?i)\bspace\b.*O\(1\)|\bstable\b`),
			},
		},
		"Insertion Sort": {
			{
				Key:      "ins_1_concept",
				Title:    "Understands insertion into sorted subarray",
				MinTurns: 2,
				Detect:   regexp.MustCompile(`(?i)insert(ing)?\s+(into|in)\s+sorted|shifting\s+elements|key\s+element`),
			},
			{
				Key:      "ins_2_dryrun",
				Title:    "Performs dry-run on example",
				MinTurns: 4,
				Detect:   regexp.MustCompile(`(?i)trace|example|step\s+\d|iteration\s+\d`),
			},
			{
				Key:      "ins_3_shift",
				Title:    "Explains element shifting vs swapping",
				MinTurns: 6,
				Detect:   regexp.MustCompile(`(?i)shift|move|while.*(compare|insert)`),
			},
			{
				Key:      "ins_4_complexity",
				Title:    "States O(n²) and why it's faster for nearly sorted data",
				MinTurns: 8,
				Detect:   regexp.MustCompile(`(?i)O\s*\(\s*n\s*\^\s*2\s*\)|nearly\s+sorted|best\s+case\s+O\(n\)`),
			},
			{
				Key:      "ins_5_space_stability",
				Title:    "Mentions O(1) space and stable property",
				MinTurns: 10,
				Detect:   regexp.MustCompile(`(?i)\bspace\b.*O\(1\)|\bstable\b`),
			},
		},
		"Merge Sort": {
			{
				Key:      "mer_1_concept",
				Title:    "Understands divide and conquer concept",
				MinTurns: 2,
				Detect:   regexp.MustCompile(`(?i)divide.*conquer|split.*half|recursive`),
			},
			{
				Key:      "mer_2_recursion",
				Title:    "Explains recursive splitting into halves",
				MinTurns: 4,
				Detect:   regexp.MustCompile(`(?i)recurs(ion|ive)|split|half|base\s+case`),
			},
			{
				Key:      "mer_3_merge_step",
				Title:    "Describes merge operation of two sorted arrays",
				MinTurns: 6,
				Detect:   regexp.MustCompile(`(?i)\bmerge\b|combine.*sorted|two\s+sorted\s+lists`),
			},
			{
				Key:      "mer_4_complexity",
				Title:    "States O(n log n) time and reason",
				MinTurns: 8,
				Detect:   regexp.MustCompile(`(?i)O\s*\(\s*n\s*log\s*n\s*\)|divide\s+and\s+merge`),
			},
			{
				Key:      "mer_5_space_stability",
				Title:    "Mentions O(n) space and stability",
				MinTurns: 10,
				Detect:   regexp.MustCompile(`(?i)O\(n\).*space|\bstable\b`),
			},
		},
		"Quick Sort": {
			{
				Key:      "qui_1_concept",
				Title:    "Understands pivot-based partitioning",
				MinTurns: 2,
				Detect:   regexp.MustCompile(`(?i)\bpivot\b|partition|split.*less.*greater`),
			},
			{
				Key:      "qui_2_partition",
				Title:    "Explains partition process clearly",
				MinTurns: 4,
				Detect:   regexp.MustCompile(`(?i)left.*smaller|right.*greater|partition.*pivot`),
			},
			{
				Key:      "qui_3_recursion",
				Title:    "Explains recursive subcalls on partitions",
				MinTurns: 6,
				Detect:   regexp.MustCompile(`(?i)recurs(ion|ive)|call\s+quick\s+sort|subarray`),
			},
			{
				Key:      "qui_4_complexity",
				Title:    "States O(n log n) average and O(n²) worst case",
				MinTurns: 8,
				Detect:   regexp.MustCompile(`(?i)O\(n\s*log\s*n\)|O\(n\^2\)|pivot\s+choice`),
			},
			{
				Key:      "qui_5_space_stability",
				Title:    "Mentions O(log n) space and instability",
				MinTurns: 10,
				Detect:   regexp.MustCompile(`(?i)O\(log\s*n\)|\bnot\s+stable\b`),
			},
		},
		"Heap Sort": {
			{
				Key:      "hea_1_concept",
				Title:    "Understands heap data structure and max-heap property",
				MinTurns: 2,
				Detect:   regexp.MustCompile(`(?i)\bheap\b|max[-\s]*heap|min[-\s]*heap|parent\s+child`),
			},
			{
				Key:      "hea_2_heapify",
				Title:    "Explains heapify or building heap",
				MinTurns: 4,
				Detect:   regexp.MustCompile(`(?i)heapify|build\s+heap|adjust\s+heap`),
			},
			{
				Key:      "hea_3_extract",
				Title:    "Explains extract-max and swap process",
				MinTurns: 6,
				Detect:   regexp.MustCompile(`(?i)extract|max\s+element|swap\s+root`),
			},
			{
				Key:      "hea_4_complexity",
				Title:    "States O(n log n) and why (heapify + extract)",
				MinTurns: 8,
				Detect:   regexp.MustCompile(`(?i)O\(n\s*log\s*n\)|heapify|extract`),
			},
			{
				Key:      "hea_5_space_stability",
				Title:    "Mentions O(1) space and instability",
				MinTurns: 10,
				Detect:   regexp.MustCompile(`(?i)O\(1\).*space|\bnot\s+stable\b`),
			},
		},
	}
}
