package sqlinline

const QSelectIntegrationSecret = `--sql 8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7
select secret
from integration_secrets
where provider = $1::text
limit 1;
`

const QUpsertIntegrationSecret = `--sql 6d4f5660-0f7c-4f73-a1f3-9ab6d5e6c7a3
insert into integration_secrets (provider, secret, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    secret = excluded.secret,
    properties = excluded.properties,
    updated_at = now();
`
