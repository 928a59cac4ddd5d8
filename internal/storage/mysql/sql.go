package mysql

const upsertHotelSQL = `
INSERT INTO hotels
  (id, position, name, city, price, available, supports_add_on)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  position        = VALUES(position),
  name            = VALUES(name),
  city            = VALUES(city),
  price           = VALUES(price),
  available       = hotels.available AND VALUES(available),
  supports_add_on = VALUES(supports_add_on)
`

// Conditional flip: zero rows affected means the unit is missing or already booked.
const bookHotelSQL = `
UPDATE hotels
SET available = 0
WHERE id = ? AND available = 1
`

const hotelExistsSQL = `SELECT 1 FROM hotels WHERE id = ?`

const insertInstrumentsPrefix = "INSERT IGNORE INTO payment_instruments\n  (number, expiration, holder, cvc)\nVALUES "

const insertSecretsPrefix = "INSERT INTO payment_secrets\n  (number, password)\nVALUES "

const insertSecretsOnDup = " ON DUPLICATE KEY UPDATE\n  password = VALUES(password)\n"

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listHotelsSQL = `
SELECT id, name, city, price, available, supports_add_on
FROM hotels
ORDER BY position, id
`

const listInstrumentsSQL = `SELECT number, expiration, holder, cvc FROM payment_instruments`

const listSecretsSQL = `SELECT number, password FROM payment_secrets`
