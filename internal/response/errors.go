package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound  ErrCode = "NOT_FOUND"
	ErrConflict  ErrCode = "CONFLICT"
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Duel-specific ─────────────────────────────────────────────────
	ErrDuplicateSession ErrCode = "DUPLICATE_SESSION"
	ErrDuelFull         ErrCode = "DUEL_FULL"
	ErrNotAParticipant  ErrCode = "NOT_A_PARTICIPANT"
	ErrDuelWrongState   ErrCode = "DUEL_WRONG_STATE"
	ErrStaleQuestion    ErrCode = "STALE_QUESTION"
	ErrDuplicateAnswer  ErrCode = "DUPLICATE_ANSWER"
	ErrWindowExpired    ErrCode = "WINDOW_EXPIRED"
	ErrSuspiciouslyFast ErrCode = "SUSPICIOUSLY_FAST"
	ErrInvalidStake     ErrCode = "INVALID_STAKE"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"

	// ─── Wallet ────────────────────────────────────────────────────────
	ErrInsufficientFunds ErrCode = "INSUFFICIENT_FUNDS"
	ErrSettlementFailed  ErrCode = "SETTLEMENT_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Nama pengguna atau kata sandi salah."
	case ErrSessionActive:
		return "Anda sudah login di perangkat lain."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."

	// ─── Duel-specific ─────────────────────────────────────────────────
	case ErrDuplicateSession:
		return "Anda masih berada dalam duel yang aktif."
	case ErrDuelFull:
		return "Duel ini sudah memiliki dua pemain."
	case ErrNotAParticipant:
		return "Anda bukan peserta duel ini."
	case ErrDuelWrongState:
		return "Aksi ini tidak dapat dilakukan pada status duel saat ini."
	case ErrStaleQuestion:
		return "Pertanyaan ini sudah tidak berlaku."
	case ErrDuplicateAnswer:
		return "Anda sudah menjawab pertanyaan ini."
	case ErrWindowExpired:
		return "Waktu menjawab sudah habis."
	case ErrSuspiciouslyFast:
		return "Jawaban terdeteksi terlalu cepat."
	case ErrInvalidStake:
		return "Nominal taruhan di luar batas yang diperbolehkan."
	case ErrNoQuestions:
		return "Tidak ada pertanyaan tersedia untuk kategori ini."

	// ─── Wallet ────────────────────────────────────────────────────────
	case ErrInsufficientFunds:
		return "Saldo dompet Anda tidak mencukupi."
	case ErrSettlementFailed:
		return "Penyelesaian duel sedang diproses ulang. Silakan cek kembali."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
