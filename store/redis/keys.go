package redis

// Redis key naming conventions. All keys are prefixed with "training:" to
// avoid collisions.

const keyPrefix = "training:"

// jobKey returns the key for a job entity: training:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"

// jobsByCreatedKey is the Sorted Set ordering job IDs by creation time.
// Score = CreatedAt in Unix nanoseconds; listing reads it in reverse.
const jobsByCreatedKey = keyPrefix + "jobs_by_created"
