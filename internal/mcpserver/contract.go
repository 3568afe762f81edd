package mcpserver

// HistoryConventions describes how replayed history is laid out in the
// repository so LLM consumers can navigate it with plain git.
const HistoryConventions = `# legacygit History Conventions

The repository is rebuilt from scratch on every replay.

## Branches

- ` + "`master`" + ` holds only the bootstrap root commit ("First init" unless configured).
- The first chain lives on a branch named after its **newest** record.
- Every later chain lives on a branch named after its **first record not already
  replayed**, forked from the commit of the last already-replayed record before it.

## Commits

- One commit per version record, oldest first.
- Message: ` + "`[<reference>] <comment>`" + ` (` + "`no comment`" + ` when the comment is empty).
- Author and committer: the record's author; e-mail is the author name lower-cased
  with spaces and accents removed, at the configured domain.
- Author and commit dates: the record's creation date.

## Tags

- Every replayed record is tagged with its own reference.
- A record skipped as "already replayed" has no tag of its own; look up the
  commit it was matched to with the ` + "`lookup_reference`" + ` tool.

## Matching

A record counts as already replayed when any earlier replayed reference
**contains** its reference as a substring. The first replayed match wins.
`
