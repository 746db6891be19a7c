package utils

//NoPlayer is the possession sentinel used when no player controls the ball
const NoPlayer = -1

//NoTeam is the sentinel for a frame where no team is known yet
const NoTeam = -1

//BallID is the single identity used for the ball track
const BallID = 1

//PlayerClass is the enum represents an object detected as a player
const PlayerClass = 0

//BallClass is the enum represents an object detected as a ball
const BallClass = 1

//RefereeClass is the enum represents an object detected as a referee
const RefereeClass = 2

//DarkTeamID is an enum to represent the team with darker uniforms
const DarkTeamID = 0

//LightTeamID is an enum to represent the team with lighter uniforms
const LightTeamID = 1

//DefaultBatchSize is the number of frames handed to the pipeline at once
const DefaultBatchSize = 30

//CourtWidthMeters and CourtHeightMeters are the FIBA court dimensions used by the tactical view
const (
	CourtWidthMeters  = 28.0
	CourtHeightMeters = 15.0
)
