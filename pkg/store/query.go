package store

const (
	queryCreateRun = `
INSERT INTO runs (id, source, status, frames, created_at)
VALUES (:id, :source, :status, 0, :created_at)`

	queryFinishRun = `
UPDATE runs
SET status = :status, frames = :frames, finished_at = :finished_at
WHERE id = :id`

	queryGetRun = `
SELECT id, source, status, frames, created_at, finished_at
FROM runs
WHERE id = ?`

	queryListRuns = `
SELECT id, source, status, frames, created_at, finished_at
FROM runs
ORDER BY created_at DESC, id`

	queryInsertEvent = `
INSERT INTO events (run_id, kind, frame, from_player, to_player, from_team, to_team)
VALUES (:run_id, :kind, :frame, :from_player, :to_player, :from_team, :to_team)`

	queryEvents = `
SELECT kind, frame, from_player, to_player, from_team, to_team
FROM events
WHERE run_id = ?
ORDER BY frame, id`

	queryUpsertPlayerStat = `
INSERT INTO player_stats (run_id, player, distance, max_speed, frames)
VALUES (:run_id, :player, :distance, :max_speed, :frames)
ON CONFLICT (run_id, player) DO UPDATE
SET distance = excluded.distance, max_speed = excluded.max_speed, frames = excluded.frames`

	queryPlayerStats = `
SELECT player, distance, max_speed, frames
FROM player_stats
WHERE run_id = ?
ORDER BY player`

	queryUpsertTeamControl = `
INSERT INTO team_control (run_id, team, frames)
VALUES (:run_id, :team, :frames)
ON CONFLICT (run_id, team) DO UPDATE
SET frames = excluded.frames`

	queryTeamControl = `
SELECT team, frames
FROM team_control
WHERE run_id = ?
ORDER BY team`
)
