// Package uploads is the queue of large binary submissions: voice clips,
// video clips and stories.
//
// Publishing an upload takes up to three remote steps: upload the blob,
// upload the thumbnail and insert the metadata row. The URL returned by each
// upload step is persisted onto the entry as soon as it is known, so a retry
// after a failed insert does not upload the blob again. The row id is the
// entry id, which turns a replayed insert into a duplicate-key conflict that
// counts as success.
package uploads
