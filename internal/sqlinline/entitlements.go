package sqlinline

const QSelectEntitlements = `--sql 3a7e1c5b-9d24-4f86-8b0e-c2f5a6d1e947
select is_premium_subscriber, temporary_unlocks
from entitlements
where owner = $1::text;
`

const QUpsertEntitlements = `--sql 6e9b2d4a-0c13-4b7f-a5e8-d1c7f3b2a960
insert into entitlements(owner, is_premium_subscriber, temporary_unlocks, updated_at)
values ($1::text, $2::boolean, $3::jsonb, now())
on conflict (owner) do update
set is_premium_subscriber = excluded.is_premium_subscriber,
    temporary_unlocks = excluded.temporary_unlocks,
    updated_at = now();
`
