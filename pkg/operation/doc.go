/*
Package operation runs the backup of one media category end to end and
sequences categories within a run.

	+-----------+    +---------+    +-----------+    +--------+    +--------+    +--------+
	|  dry run  +--->+ consent +--->+ real sync +--->+ filter +--->+ review +--->+ import |
	+-----------+    +---------+    +-----------+    +--------+    +--------+    +--------+

🎯 Purpose:
- Ask before anything is written to the archive
- Only files the transfer actually wrote are considered for import
- Categories run one after another, never concurrently

🔄 Flow:
1. A dry run lists what would change; nothing to change ends the category
2. The consent reviewer sees the candidates; declining skips the category
3. The real transfer runs and reports the files it wrote
4. Ignore rules drop files that must never be imported
5. Categories with review enabled ask the category reviewer
6. Approved files are copied into the import folder

⚠️ Declining is not an error: the Report is marked Skipped.
*/
package operation
