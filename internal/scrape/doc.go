// Package scrape orchestrates recipe extraction jobs. The Service claims
// jobs and feeds the queue, the Pipeline turns one URL into an accepted
// candidate through the two fetch tiers and the strategy chain, and the
// Worker drains the queue applying the job lifecycle around the pipeline.
package scrape
