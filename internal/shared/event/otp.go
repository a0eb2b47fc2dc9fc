package event

const OTPIssuedDestination string = "otp_issued"
const OTPIssuedConsumerAudit string = "otp_issued_audit"

const OTPVerifiedDestination string = "otp_verified"
const OTPVerifiedConsumerAudit string = "otp_verified_audit"

const PasswordResetDestination string = "password_reset"
const PasswordResetConsumerAudit string = "password_reset_audit"
