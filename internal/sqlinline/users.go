package sqlinline

const QSelectUserCredits = `--sql 6d342545-609e-4b92-86ef-9d577f44c6f6
select credits
from "user"
where id = $1::text;
`

const QSelectUserIDByEmail = `--sql 3f0b8c4e-2d7a-4e61-9c55-7b1e0a9d4f28
select id
from "user"
where lower(email) = lower($1::text)
limit 1;
`

// QSetUserCredits and QAddUserCredits never let the balance go below zero.
const QSetUserCredits = `--sql b7c2e915-4a38-4f0d-8e6b-2c9d71a5f304
update "user"
set credits = greatest($2::int, 0),
    updated_at = now()
where id = $1::text
returning id, email, credits;
`

const QAddUserCredits = `--sql e41a6d07-93cb-4b25-a8f1-5d0c2b7e9136
update "user"
set credits = greatest(credits + $2::int, 0),
    updated_at = now()
where id = $1::text
returning id, email, credits;
`
