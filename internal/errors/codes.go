package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents internal error codes for tournament operations.
// The numbering follows the fault codes exposed to remote callers.
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Configuration errors (invalid roster at creation)
	ErrCodeRepeatedPlayerIDs ErrorCode = 101
	ErrCodePlayerExists      ErrorCode = 102
	ErrCodeInvalidRoster     ErrorCode = 104

	// Transient contention and lifecycle errors
	ErrCodeMatchesPendingCommit ErrorCode = 201
	ErrCodeEndOfTournament      ErrorCode = 202

	// Protocol misuse
	ErrCodeInvalidArgument    ErrorCode = 301
	ErrCodeMatchExists        ErrorCode = 302
	ErrCodeMatchNotCheckedOut ErrorCode = 303
	ErrCodeAlreadyDecided     ErrorCode = 304
	ErrCodeAlreadyByed        ErrorCode = 305

	// Winner resolution
	ErrCodeStillRunning ErrorCode = 401
	ErrCodeStillTied    ErrorCode = 402

	// Pairing exhaustion (fatal for the tournament)
	ErrCodeMaxRearranges       ErrorCode = 501
	ErrCodeRepetitionExhausted ErrorCode = 502
	ErrCodeUnknownAlgorithm    ErrorCode = 503
	ErrCodeNoByeCandidate      ErrorCode = 504

	// Service errors
	ErrCodeTournamentNotFound ErrorCode = 601
	ErrCodeInternal           ErrorCode = 900
)

// String returns the wire name of the code
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "OK"
	case ErrCodeRepeatedPlayerIDs:
		return "REPEATED_PLAYER_IDS"
	case ErrCodePlayerExists:
		return "PLAYER_EXISTS"
	case ErrCodeInvalidRoster:
		return "INVALID_ROSTER"
	case ErrCodeMatchesPendingCommit:
		return "MATCHES_PENDING_COMMIT"
	case ErrCodeEndOfTournament:
		return "END_OF_TOURNAMENT"
	case ErrCodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrCodeMatchExists:
		return "MATCH_EXISTS"
	case ErrCodeMatchNotCheckedOut:
		return "MATCH_NOT_CHECKED_OUT"
	case ErrCodeAlreadyDecided:
		return "ALREADY_DECIDED"
	case ErrCodeAlreadyByed:
		return "ALREADY_BYED"
	case ErrCodeStillRunning:
		return "STILL_RUNNING"
	case ErrCodeStillTied:
		return "STILL_TIED"
	case ErrCodeMaxRearranges:
		return "MAX_REARRANGES"
	case ErrCodeRepetitionExhausted:
		return "REPETITION_EXHAUSTED"
	case ErrCodeUnknownAlgorithm:
		return "UNKNOWN_ALGORITHM"
	case ErrCodeNoByeCandidate:
		return "NO_BYE_CANDIDATE"
	case ErrCodeTournamentNotFound:
		return "TOURNAMENT_NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

// TournamentError represents a structured error with code and context
type TournamentError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *TournamentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *TournamentError) Unwrap() error {
	return e.Cause
}

// Is matches another TournamentError by code, so errors.Is works against the
// values returned by the constructors below.
func (e *TournamentError) Is(target error) bool {
	t, ok := target.(*TournamentError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ToGRPCStatus converts TournamentError to gRPC status
func (e *TournamentError) ToGRPCStatus() *status.Status {
	return status.New(e.toGRPCCode(), e.Error())
}

// toGRPCCode maps internal error codes to gRPC codes
func (e *TournamentError) toGRPCCode() codes.Code {
	switch e.Code {
	case ErrCodeOK:
		return codes.OK
	case ErrCodeRepeatedPlayerIDs, ErrCodeInvalidRoster, ErrCodeInvalidArgument:
		return codes.InvalidArgument
	case ErrCodePlayerExists, ErrCodeMatchExists, ErrCodeAlreadyDecided:
		return codes.AlreadyExists
	case ErrCodeMatchNotCheckedOut, ErrCodeAlreadyByed, ErrCodeStillRunning, ErrCodeStillTied:
		return codes.FailedPrecondition
	case ErrCodeMatchesPendingCommit:
		return codes.Unavailable
	case ErrCodeEndOfTournament:
		return codes.OutOfRange
	case ErrCodeMaxRearranges, ErrCodeRepetitionExhausted, ErrCodeUnknownAlgorithm, ErrCodeNoByeCandidate:
		return codes.Aborted
	case ErrCodeTournamentNotFound:
		return codes.NotFound
	default:
		return codes.Internal
	}
}

// NewTournamentError creates a new TournamentError
func NewTournamentError(code ErrorCode, message string, cause error) *TournamentError {
	return &TournamentError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *TournamentError) WithDetail(key string, value interface{}) *TournamentError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func RepeatedPlayerIDs(ids []string) *TournamentError {
	return NewTournamentError(ErrCodeRepeatedPlayerIDs, "repeated player ids detected", nil).
		WithDetail("player_ids", ids)
}

func PlayerExists(playerID string) *TournamentError {
	return NewTournamentError(ErrCodePlayerExists, fmt.Sprintf("player %s already exists", playerID), nil).
		WithDetail("player_id", playerID)
}

func InvalidRoster(reason string) *TournamentError {
	return NewTournamentError(ErrCodeInvalidRoster, fmt.Sprintf("invalid roster: %s", reason), nil).
		WithDetail("reason", reason)
}

func MatchesPendingCommit(pending int) *TournamentError {
	return NewTournamentError(ErrCodeMatchesPendingCommit, fmt.Sprintf("still %d matches to be committed", pending), nil).
		WithDetail("pending", pending)
}

func EndOfTournament() *TournamentError {
	return NewTournamentError(ErrCodeEndOfTournament, "tournament reached the end", nil)
}

func InvalidArgument(message string, cause error) *TournamentError {
	return NewTournamentError(ErrCodeInvalidArgument, message, cause)
}

func MatchExists(player1, player2 string) *TournamentError {
	return NewTournamentError(ErrCodeMatchExists, fmt.Sprintf("match %s x %s already exists", player1, player2), nil).
		WithDetail("player1", player1).
		WithDetail("player2", player2)
}

func MatchNotCheckedOut(player1, player2 string) *TournamentError {
	return NewTournamentError(ErrCodeMatchNotCheckedOut, fmt.Sprintf("match %s x %s has not been checked out", player1, player2), nil).
		WithDetail("player1", player1).
		WithDetail("player2", player2)
}

func AlreadyDecided() *TournamentError {
	return NewTournamentError(ErrCodeAlreadyDecided, "match is already decided", nil)
}

func AlreadyByed(playerID string) *TournamentError {
	return NewTournamentError(ErrCodeAlreadyByed, fmt.Sprintf("player %s already received a bye", playerID), nil).
		WithDetail("player_id", playerID)
}

func StillRunning(round, roundsRequired int) *TournamentError {
	return NewTournamentError(ErrCodeStillRunning, "tournament is still running", nil).
		WithDetail("round", round).
		WithDetail("rounds_required", roundsRequired)
}

func StillTied(candidates int) *TournamentError {
	return NewTournamentError(ErrCodeStillTied, "tie could not be broken, try flipping a coin", nil).
		WithDetail("candidates", candidates)
}

func MaxRearranges(round, rearranges int) *TournamentError {
	return NewTournamentError(ErrCodeMaxRearranges, "reached maximum number of rearrangements allowed", nil).
		WithDetail("round", round).
		WithDetail("rearranges", rearranges)
}

func RepetitionExhausted(round, missing int) *TournamentError {
	return NewTournamentError(ErrCodeRepetitionExhausted, "repeating matches as last resort was not enough", nil).
		WithDetail("round", round).
		WithDetail("missing_matches", missing)
}

func UnknownAlgorithm(tier int) *TournamentError {
	return NewTournamentError(ErrCodeUnknownAlgorithm, fmt.Sprintf("match generation algorithm %d unknown", tier), nil).
		WithDetail("tier", tier)
}

func NoByeCandidate(round int) *TournamentError {
	return NewTournamentError(ErrCodeNoByeCandidate, "every player already received a bye", nil).
		WithDetail("round", round)
}

func TournamentNotFound(tournamentID string) *TournamentError {
	return NewTournamentError(ErrCodeTournamentNotFound, fmt.Sprintf("tournament not found: %s", tournamentID), nil).
		WithDetail("tournament_id", tournamentID)
}

func InternalError(message string, cause error) *TournamentError {
	return NewTournamentError(ErrCodeInternal, message, cause)
}

// IsTournamentError checks if an error is a TournamentError
func IsTournamentError(err error) bool {
	var te *TournamentError
	return stderrors.As(err, &te)
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var te *TournamentError
	if stderrors.As(err, &te) {
		return te.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// IsPairingExhaustion reports whether err means the pairing algorithm could
// not converge and the tournament cannot proceed.
func IsPairingExhaustion(err error) bool {
	switch GetCode(err) {
	case ErrCodeMaxRearranges, ErrCodeRepetitionExhausted, ErrCodeUnknownAlgorithm, ErrCodeNoByeCandidate:
		return true
	default:
		return false
	}
}
